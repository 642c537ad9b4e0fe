// Package security は入力の抽出・無害化とアウトバウンド通信の保護を提供する。
package security

import (
	"net/url"
	"strings"
)

// ExtractURLs はフリーテキストから有効なhttp/https URLを抽出する。
//
// 処理手順:
//   - CRをLFに正規化して行に分割する
//   - 各行をさらに空白で分割する（1行に複数URL可）
//   - 各トークンの末尾のカンマ・セミコロンを取り除く
//   - URLとしてパースし、スキームがhttp/httpsかつホストが非空のもののみ残す
//   - 初出順を保ったまま重複を除去する
//
// 不正なトークンは黙って捨てる。どのトークンが捨てられたかは報告しない
// （厳密な検証より寛容な抽出を優先する方針）。
// 空の結果も正常な戻り値であり、却下するかどうかは呼び出し側が決める。
// 同一入力に対して常に同一出力を返し、出力を連結して再抽出しても変化しない（冪等）。
func ExtractURLs(raw string) []string {
	var candidates []string
	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, tok := range strings.Fields(line) {
			tok = strings.Trim(tok, ",;")
			if tok == "" {
				continue
			}
			parsed, err := url.Parse(tok)
			if err != nil {
				continue
			}
			if (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != "" {
				candidates = append(candidates, tok)
			}
		}
	}

	// 初出順を保った重複除去
	seen := make(map[string]struct{}, len(candidates))
	var out []string
	for _, u := range candidates {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
