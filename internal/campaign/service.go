// Package campaign はキャンペーン送信パイプラインを提供する。
//
// パイプラインは 受付 → 検証 → URL抽出 → 外部API送信 → 監査ログ → 運用者通知 →
// 結果報告 を1パスで実行する。検証・抽出での失敗は外部呼び出しを一切行わずに
// 利用者へ却下理由を返す。抽出を通過した後は、監査ログと通知の個別失敗に
// 関わらず各段を必ず順に実行する（ベストエフォートの副作用）。
// 外部APIの生の結果は利用者には返さず、運用者通知と監査ログにのみ記録する。
package campaign

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/pingman/internal/model"
	"github.com/hitoshi/pingman/internal/security"
)

// maxNotifyBodyLen は運用者通知に載せるレスポンスボディの最大バイト数。
const maxNotifyBodyLen = 1000

// successMessage は送信受理時に利用者へ表示する固定メッセージ。
// 外部APIの成否に関わらずこのメッセージを返す。
const successMessage = "キャンペーンを作成しました。結果は運用者のTelegramに送信されます。"

// CampaignSubmitter は外部キャンペーンAPIへの送信インターフェース。
// pingapi.Clientの抽象化。
type CampaignSubmitter interface {
	CreateCampaign(ctx context.Context, campaignName string, numberOfDay int, urls []string) (int, string)
}

// AuditRecorder は監査ログ記録のインターフェース。audit.Recorderの抽象化。
type AuditRecorder interface {
	Record(ctx context.Context, rec model.AuditRecord) error
}

// OperatorNotifier は運用者通知のインターフェース。notify.Telegramの抽象化。
type OperatorNotifier interface {
	Send(ctx context.Context, chatID, text string) (int, string)
}

// MetricsRecorder はパイプラインが記録するメトリクスのインターフェース。
type MetricsRecorder interface {
	RecordSubmissionAccepted()
	RecordSubmissionRejected(reason string)
	RecordCampaignAPIStatus(statusCode int)
	RecordCampaignAPILatency(duration time.Duration)
	RecordAuditAppendFailure()
	RecordNotifyFailure()
}

// ServiceConfig は送信パイプラインの設定。
type ServiceConfig struct {
	AdminChatID string // すべての通知を受け取る運用者のTelegramチャットID
}

// Service はキャンペーン送信パイプラインを実行する。
type Service struct {
	submitter CampaignSubmitter
	recorder  AuditRecorder
	notifier  OperatorNotifier
	sanitizer security.TextSanitizerService
	metrics   MetricsRecorder
	config    ServiceConfig
	logger    *slog.Logger

	// now はキャンペーン名と監査タイムスタンプの時刻源。テストで差し替える。
	now func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	submitter CampaignSubmitter,
	recorder AuditRecorder,
	notifier OperatorNotifier,
	sanitizer security.TextSanitizerService,
	metrics MetricsRecorder,
	config ServiceConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		submitter: submitter,
		recorder:  recorder,
		notifier:  notifier,
		sanitizer: sanitizer,
		metrics:   metrics,
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit は1件のキャンペーン送信リクエストを最後まで処理する。
//
// rawDaysとrawURLsはフォームから受け取った生の文字列。検証・抽出での却下は
// OK=falseと利用者向けの理由を返し、外部呼び出しは行わない。
// 抽出を通過した場合は必ずOK=trueを返す。外部API・監査ログ・通知の失敗は
// 利用者には見せず、ログとメトリクス（および可能なら運用者通知）に残す。
func (s *Service) Submit(ctx context.Context, username, rawDays, rawURLs string) model.SubmissionResult {
	// 1. 日数の検証
	days, err := strconv.Atoi(strings.TrimSpace(rawDays))
	if err != nil {
		s.metrics.RecordSubmissionRejected("invalid_day_count")
		return rejection(model.NewInvalidDayCountError(rawDays))
	}
	if days < 1 || days > 365 {
		s.metrics.RecordSubmissionRejected("day_count_out_of_range")
		return rejection(model.NewDayCountOutOfRangeError(days))
	}

	// 2. URL抽出
	urls := security.ExtractURLs(rawURLs)
	if len(urls) == 0 {
		s.metrics.RecordSubmissionRejected("no_valid_urls")
		return rejection(model.NewNoValidURLsError())
	}

	// 3. キャンペーン名の生成: {username}_{unixtime}
	// 秒精度のため厳密な一意性は保証しないが、衝突確率は無視できる。
	submittedAt := s.now()
	campaignName := fmt.Sprintf("%s_%d", username, submittedAt.Unix())

	s.logger.Info("submitting campaign",
		slog.String("username", username),
		slog.String("campaign_name", campaignName),
		slog.Int("number_of_day", days),
		slog.Int("url_count", len(urls)),
	)

	// 4. 外部APIへ送信（リトライなし、結果は値として受ける）
	start := time.Now()
	status, body := s.submitter.CreateCampaign(ctx, campaignName, days, urls)
	s.metrics.RecordCampaignAPILatency(time.Since(start))
	s.metrics.RecordCampaignAPIStatus(status)

	// レスポンスボディは信頼できないためプレーンテキスト化してから保存・通知する
	cleanBody := s.sanitizer.PlainText(body)

	// 5. 監査ログへ追記（失敗しても利用者フローは止めない）
	rec := model.AuditRecord{
		Timestamp:      submittedAt.UTC(),
		Username:       username,
		CampaignName:   campaignName,
		NumberOfDay:    days,
		URLsCount:      len(urls),
		ResponseStatus: status,
		ResponseBody:   cleanBody,
	}
	if err := s.recorder.Record(ctx, rec); err != nil {
		s.metrics.RecordAuditAppendFailure()
		s.logger.Error("failed to append audit record",
			slog.String("campaign_name", campaignName),
			slog.String("error", err.Error()),
		)
		alert := fmt.Sprintf("[ALERT] 監査ログの書き込みに失敗しました: %v", err)
		if st, _ := s.notifier.Send(ctx, s.config.AdminChatID, alert); st != http.StatusOK {
			s.metrics.RecordNotifyFailure()
		}
	}

	// 6. 運用者への結果通知
	text := s.formatNotification(username, campaignName, days, len(urls), status, cleanBody)
	if st, _ := s.notifier.Send(ctx, s.config.AdminChatID, text); st != http.StatusOK {
		s.metrics.RecordNotifyFailure()
		s.logger.Warn("operator notification was not delivered",
			slog.String("campaign_name", campaignName),
			slog.Int("notify_status", st),
		)
	}

	s.metrics.RecordSubmissionAccepted()
	return model.SubmissionResult{OK: true, Message: successMessage}
}

// formatNotification は運用者向けの結果通知テキストを組み立てる。
func (s *Service) formatNotification(username, campaignName string, days, urlCount, status int, body string) string {
	if len(body) > maxNotifyBodyLen {
		body = body[:maxNotifyBodyLen]
	}
	return fmt.Sprintf(
		"[1hping] New campaign\nUser: %s\nCampaign: %s\nDays: %d\nURLs: %d\nStatus: %d\nResp: %s",
		username, campaignName, days, urlCount, status, body,
	)
}

// rejection はAPIErrorを利用者向けの却下結果に変換する。
func rejection(err *model.APIError) model.SubmissionResult {
	return model.SubmissionResult{OK: false, Message: err.Message}
}
