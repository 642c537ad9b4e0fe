package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService は信頼できない文字列のプレーンテキスト化機能の
// インターフェースを定義する。外部APIのレスポンスボディを監査ログへ保存する前、
// および運用者通知へ載せる前に使用される。
type TextSanitizerService interface {
	// PlainText は入力からすべてのHTMLタグを除去したプレーンテキストを返す。
	// HTMLエンティティは復元される。空文字列の入力には空文字列を返す。
	PlainText(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのStrictPolicy（全タグ除去）を保持し、スレッドセーフに処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// 外部APIのレスポンスはエラーページ等のHTMLを返すことがあるため、
// タグを落とした上でHTMLエンティティを復元し、読める1行テキストに整える。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// PlainText は入力からすべてのHTMLタグを除去したプレーンテキストを返す。
func (s *textSanitizer) PlainText(raw string) string {
	stripped := s.policy.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(stripped))
}
