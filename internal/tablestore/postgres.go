package tablestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/lib/pq"
)

// pgUndefinedTable はPostgreSQLのundefined_tableエラーコード。
const pgUndefinedTable = "42P01"

// rowIDColumn は挿入順を保持するための内部連番列。ReadAllの結果には含めない。
const rowIDColumn = "row_id"

// Postgres はPostgreSQLを使用したStore実装。
// 論理テーブル1つをSQLテーブル1つに対応させ、全列をTEXTとして保持する。
type Postgres struct {
	db *sql.DB

	// headers はEnsureTable/ReadAllで解決した列順のキャッシュ。
	// テーブル定義は実行中に変化しない前提。
	mu      sync.RWMutex
	headers map[string][]string
}

// NewPostgres はPostgresストアを生成する。
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{
		db:      db,
		headers: make(map[string][]string),
	}
}

// EnsureTable はテーブルを冪等に作成する。
// 併走する初回追記同士の作成競合はCREATE TABLE IF NOT EXISTSで吸収する。
func (s *Postgres) EnsureTable(ctx context.Context, table string, header []string) error {
	if len(header) == 0 {
		return fmt.Errorf("tablestore: header must not be empty")
	}

	cols := make([]string, 0, len(header)+1)
	cols = append(cols, pq.QuoteIdentifier(rowIDColumn)+" BIGSERIAL PRIMARY KEY")
	for _, col := range header {
		cols = append(cols, pq.QuoteIdentifier(col)+" TEXT NOT NULL DEFAULT ''")
	}

	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		pq.QuoteIdentifier(table), strings.Join(cols, ", "))

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure table %s: %w", table, err)
	}

	s.mu.Lock()
	s.headers[table] = append([]string(nil), header...)
	s.mu.Unlock()

	return nil
}

// AppendRow は1行を追記する。テーブル未作成の場合はErrTableNotFoundを返す。
func (s *Postgres) AppendRow(ctx context.Context, table string, row []string) error {
	header, err := s.columnOrder(ctx, table)
	if err != nil {
		return err
	}
	if len(row) != len(header) {
		return fmt.Errorf("tablestore: row has %d cells, table %s has %d columns", len(row), table, len(header))
	}

	quoted := make([]string, len(header))
	placeholders := make([]string, len(header))
	args := make([]any, len(header))
	for i, col := range header {
		quoted[i] = pq.QuoteIdentifier(col)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = row[i]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pq.QuoteIdentifier(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if isUndefinedTable(err) {
			return ErrTableNotFound
		}
		return fmt.Errorf("failed to append row to %s: %w", table, err)
	}

	return nil
}

// ReadAll は全行を挿入順で返す。テーブル未作成の場合はErrTableNotFoundを返す。
func (s *Postgres) ReadAll(ctx context.Context, table string) ([][]string, error) {
	header, err := s.columnOrder(ctx, table)
	if err != nil {
		return nil, err
	}

	quoted := make([]string, len(header))
	for i, col := range header {
		quoted[i] = pq.QuoteIdentifier(col)
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(quoted, ", "), pq.QuoteIdentifier(table), pq.QuoteIdentifier(rowIDColumn))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("failed to read table %s: %w", table, err)
	}
	defer rows.Close()

	var result [][]string
	for rows.Next() {
		cells := make([]string, len(header))
		dest := make([]any, len(header))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row from %s: %w", table, err)
		}
		result = append(result, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate table %s: %w", table, err)
	}

	return result, nil
}

// columnOrder はテーブルの列順を返す。
// キャッシュになければinformation_schemaから内部連番列を除いて解決する。
func (s *Postgres) columnOrder(ctx context.Context, table string) ([]string, error) {
	s.mu.RLock()
	header, ok := s.headers[table]
	s.mu.RUnlock()
	if ok {
		return header, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT column_name FROM information_schema.columns
		 WHERE table_schema = current_schema() AND table_name = $1
		 ORDER BY ordinal_position`,
		table,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, fmt.Errorf("failed to scan column name: %w", err)
		}
		if col == rowIDColumn {
			continue
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate columns of %s: %w", table, err)
	}

	if len(cols) == 0 {
		return nil, ErrTableNotFound
	}

	s.mu.Lock()
	s.headers[table] = cols
	s.mu.Unlock()

	return cols, nil
}

// isUndefinedTable はundefined_table（42P01）かどうかを判定する。
func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUndefinedTable
	}
	return false
}

// compile-time interface check
var _ Store = (*Postgres)(nil)
