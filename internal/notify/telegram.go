// Package notify は運用者向けのTelegram通知を提供する。
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// defaultBaseURL はTelegram Bot APIのベースURL。
const defaultBaseURL = "https://api.telegram.org"

// sendMessageRequest はsendMessageエンドポイントのリクエストボディ。
type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// Telegram はTelegram Bot APIで運用者へテキストを送るクライアント。
// ベストエフォート設計: 失敗してもエラーを返さず、リトライもしない。
// 運用者がすべての通知を受け取れる保証はなく、二次的な警報経路も持たない。
type Telegram struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string // テスト用にベースURLを差し替え可能
	botToken   string
}

// NewTelegram はTelegramクライアントの新しいインスタンスを生成する。
// 渡すhttp.Clientには短いタイムアウト（10秒程度）を設定しておくこと。
func NewTelegram(httpClient *http.Client, logger *slog.Logger, botToken string) *Telegram {
	return &Telegram{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    defaultBaseURL,
		botToken:   botToken,
	}
}

// NewTelegramWithBaseURL はベースURLを指定してTelegramクライアントを生成する。
func NewTelegramWithBaseURL(httpClient *http.Client, logger *slog.Logger, baseURL, botToken string) *Telegram {
	t := NewTelegram(httpClient, logger, botToken)
	if baseURL != "" {
		t.baseURL = baseURL
	}
	return t
}

// Send は指定チャットへプレーンテキストを1件送信する。
//
// 戻り値は (HTTPステータスコード, レスポンステキスト)。
// 送信自体に失敗した場合はステータス0とエラー内容を返す。
// いかなる失敗もerrorとしては伝播しない（ログに残して飲み込む）。
func (t *Telegram) Send(ctx context.Context, chatID, text string) (int, string) {
	payload, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text})
	if err != nil {
		return 0, fmt.Sprintf("failed to encode message: %v", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Sprintf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.logger.Error("Telegram通知の送信に失敗しました",
			slog.String("chat_id", chatID),
			slog.String("error", err.Error()),
		)
		return 0, err.Error()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Sprintf("failed to read response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.logger.Warn("Telegram APIがエラーステータスを返しました",
			slog.String("chat_id", chatID),
			slog.Int("http_status", resp.StatusCode),
		)
	}

	return resp.StatusCode, string(body)
}
