// Package pingapi は1hpingキャンペーン作成APIのクライアントを提供する。
package pingapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// createRequest はキャンペーン作成APIのリクエストボディ。
// フィールド名は外部APIの仕様に合わせたPascalCase。
type createRequest struct {
	CampaignName string   `json:"CampaignName"`
	NumberOfDay  int      `json:"NumberOfDay"`
	Urls         []string `json:"Urls"`
}

// Client は1hpingキャンペーン作成APIのクライアント。
// 外部サービスの応答が遅いことがあるため、渡すhttp.Clientには
// 長めのタイムアウト（2分程度）を設定しておくこと。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string // テスト用にエンドポイントを差し替え可能
	apiKey     string
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, endpoint, apiKey string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		endpoint:   endpoint,
		apiKey:     apiKey,
	}
}

// CreateCampaign はキャンペーンを1件同期的に作成する。
//
// 戻り値は (HTTPステータスコード, レスポンスボディ)。
// ボディが有効なJSONの場合はコンパクト化したJSON文字列、そうでなければ生テキスト。
// リクエスト自体が送信できなかった場合はステータス0とエラー内容を返す。
//
// 非2xxステータスはエラーではない。リトライもしない。
// 結果の解釈（ログ・通知・利用者向け表示）は呼び出し元の責務。
func (c *Client) CreateCampaign(ctx context.Context, campaignName string, numberOfDay int, urls []string) (int, string) {
	payload, err := json.Marshal(createRequest{
		CampaignName: campaignName,
		NumberOfDay:  numberOfDay,
		Urls:         urls,
	})
	if err != nil {
		return 0, fmt.Sprintf("failed to encode request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Sprintf("failed to create request: %v", err)
	}
	req.Header.Set("ApiKey", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("キャンペーンAPIの呼び出しに失敗しました",
			slog.String("campaign_name", campaignName),
			slog.String("error", err.Error()),
		)
		return 0, err.Error()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("キャンペーンAPIのレスポンス読み取りに失敗しました",
			slog.String("campaign_name", campaignName),
			slog.String("error", err.Error()),
		)
		return resp.StatusCode, fmt.Sprintf("failed to read response body: %v", err)
	}

	c.logger.Info("campaign API call completed",
		slog.String("campaign_name", campaignName),
		slog.Int("http_status", resp.StatusCode),
		slog.Int("url_count", len(urls)),
	)

	return resp.StatusCode, normalizeBody(body)
}

// normalizeBody はレスポンスボディを文字列に整える。
// 有効なJSONならコンパクト化して返し、そうでなければ生テキストを返す。
func normalizeBody(body []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return string(body)
	}
	return buf.String()
}
