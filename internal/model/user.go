// Package model はドメインモデルを定義する。
package model

import "time"

// User はキャンペーン作成を許可された利用者を表す。
// usersテーブルの1行に対応し、運用側のプロビジョニングで作成される。
// パイプラインからは読み取り専用。
type User struct {
	Username     string
	PasswordHash string // bcryptハッシュ（ソルト込み）
	Fullname     string
}

// SubmissionResult は送信パイプラインの最終結果を表す。
// OKがfalseの場合、Messageには利用者向けの却下理由が入る。
// 外部APIの生のステータスは利用者には返さない（運用者通知と監査ログのみ）。
type SubmissionResult struct {
	OK      bool
	Message string
}

// AuditRecord は監査ログの1行を表す。
// logsテーブルに追記専用で書き込まれ、更新・削除されることはない。
type AuditRecord struct {
	Timestamp    time.Time
	Username     string
	CampaignName string
	NumberOfDay  int
	URLsCount    int
	// ResponseStatus は外部APIのHTTPステータスコード。
	// リクエスト自体が送信できなかった場合は0。
	ResponseStatus int
	// ResponseBody は外部APIのレスポンスボディ。
	// 監査ログへの書き込み時に一定長で切り詰められる。
	ResponseBody string
}
