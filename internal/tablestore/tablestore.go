// Package tablestore はリモート表形式ストアの抽象化を提供する。
//
// この系ではユーザー台帳（users）と監査ログ（logs）を小さな表として扱う。
// バックエンドはPostgreSQL実装とテスト用のインメモリ実装を提供し、
// すべてのセルを文字列として読み書きする。インデックスやクエリ言語は
// 意図的に公開しない（全件読み・追記・作成の3操作のみ）。
package tablestore

import (
	"context"
	"errors"
)

// ErrTableNotFound は対象テーブルが存在しない場合に返されるセンチネルエラー。
// 呼び出し側はEnsureTableで作成してから再試行できる。
var ErrTableNotFound = errors.New("tablestore: table not found")

// Store は表形式ストアへの最小インターフェース。
type Store interface {
	// EnsureTable はテーブルを冪等に作成する。headerが列名となる。
	// 既存テーブルに対しては何もしない（ヘッダーの整合性は検証しない）。
	EnsureTable(ctx context.Context, table string, header []string) error

	// AppendRow は1行を末尾に追記する。
	// テーブルが存在しない場合はErrTableNotFoundを返す。
	AppendRow(ctx context.Context, table string, row []string) error

	// ReadAll は全行を挿入順で返す。各行はヘッダー順のセル列。
	// テーブルが存在しない場合はErrTableNotFoundを返す。
	ReadAll(ctx context.Context, table string) ([][]string, error)
}
