// Package audit はキャンペーン送信結果の監査ログ記録を提供する。
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/hitoshi/pingman/internal/model"
	"github.com/hitoshi/pingman/internal/tablestore"
)

// logsTable は監査ログの論理テーブル名。
const logsTable = "logs"

// maxResponseBodyLen は監査ログに保存するレスポンスボディの最大バイト数。
const maxResponseBodyLen = 32000

// LogsHeader はlogsテーブルの列定義。初回追記時のテーブル作成に使用する。
var LogsHeader = []string{
	"timestamp",
	"username",
	"campaign_name",
	"number_of_day",
	"urls_count",
	"response_status",
	"response_body",
}

// TableAppender は監査ログの書き込みに必要なインターフェース。
// tablestore.Storeの部分集合として定義する。
type TableAppender interface {
	EnsureTable(ctx context.Context, table string, header []string) error
	AppendRow(ctx context.Context, table string, row []string) error
}

// Recorder は監査ログを追記専用で記録する。
type Recorder struct {
	store  TableAppender
	logger *slog.Logger
}

// NewRecorder はRecorderを生成する。
func NewRecorder(store TableAppender, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: logger,
	}
}

// Record は監査ログ1行を追記する。
//
// logsテーブルが存在しない場合は定義済みヘッダーで作成してから1回だけ再試行する
// （ensure-then-append）。トランザクションは張らない。初回追記が併走した場合の
// 作成競合は許容リスク（ストア側のCREATE IF NOT EXISTSで吸収される）。
//
// エラーは返すが、呼び出し元はこれを致命扱いしてはならない。
// 記録失敗は利用者向けフローを止めず、運用者通知で報告される。
func (r *Recorder) Record(ctx context.Context, rec model.AuditRecord) error {
	row := r.toRow(rec)

	err := r.store.AppendRow(ctx, logsTable, row)
	if errors.Is(err, tablestore.ErrTableNotFound) {
		if err := r.store.EnsureTable(ctx, logsTable, LogsHeader); err != nil {
			return fmt.Errorf("failed to create logs table: %w", err)
		}
		err = r.store.AppendRow(ctx, logsTable, row)
	}
	if err != nil {
		return fmt.Errorf("failed to append audit record: %w", err)
	}

	r.logger.Info("audit record appended",
		slog.String("username", rec.Username),
		slog.String("campaign_name", rec.CampaignName),
		slog.Int("response_status", rec.ResponseStatus),
	)
	return nil
}

// toRow はAuditRecordをlogsテーブルの行（全セル文字列）に変換する。
// ResponseBodyは上限長で切り詰める。
func (r *Recorder) toRow(rec model.AuditRecord) []string {
	body := rec.ResponseBody
	if len(body) > maxResponseBodyLen {
		body = body[:maxResponseBodyLen]
	}

	return []string{
		rec.Timestamp.UTC().Format("2006-01-02 15:04:05"),
		rec.Username,
		rec.CampaignName,
		strconv.Itoa(rec.NumberOfDay),
		strconv.Itoa(rec.URLsCount),
		strconv.Itoa(rec.ResponseStatus),
		body,
	}
}
