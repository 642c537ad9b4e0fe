package security

import "testing"

func TestPlainText_StripsHTMLTags(t *testing.T) {
	s := NewTextSanitizer()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "プレーンテキストはそのまま",
			raw:  `{"Success":true,"CampaignId":42}`,
			want: `{"Success":true,"CampaignId":42}`,
		},
		{
			name: "タグ除去",
			raw:  "<html><body><h1>502 Bad Gateway</h1></body></html>",
			want: "502 Bad Gateway",
		},
		{
			name: "scriptは中身ごと除去",
			raw:  `error<script>alert("x")</script>`,
			want: "error",
		},
		{
			name: "エンティティ復元",
			raw:  "rate &lt; limit &amp; quota",
			want: "rate < limit & quota",
		},
		{
			name: "空入力",
			raw:  "",
			want: "",
		},
		{
			name: "前後の空白を除去",
			raw:  "  <p>ok</p>  ",
			want: "ok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.PlainText(tt.raw); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

// compile-time interface check
var _ TextSanitizerService = (*textSanitizer)(nil)
