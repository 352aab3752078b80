// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は利用者が入力した文字列からHTMLを取り除き、
// 履歴の閲覧画面でのXSSを防ぐ。bluemondayのStrictPolicyを使用する。
// 結果はHTMLエスケープしないプレーンテキストで、表示側でエスケープする。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はプレーンテキスト化のインターフェースを定義する。
type TextSanitizer interface {
	// Sanitize は全てのタグを除去したテキストを返す。script/styleは中身ごと除去される。
	// 前後の空白は取り除く。
	Sanitize(raw string) string
	// SanitizeValue はJSONデコード結果の値に含まれる全ての文字列をSanitizeする。
	// map[string]any と []any は再帰的に処理し、それ以外の型はそのまま返す。
	SanitizeValue(v any) any
}

// maxSanitizePasses は実体参照で符号化されたタグを取り除くための最大反復回数。
const maxSanitizePasses = 4

// textSanitizer はTextSanitizerの実装。
// bluemonday.Policyは並行利用に対して安全。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize は全てのタグを除去したテキストを返す。
// StrictPolicyが付ける実体参照（&amp; など）は元の文字に戻す。
// 戻した結果が新たなタグになる入力（&lt;script&gt; など）は、変化しなくなるまで繰り返し除去する。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	out := raw
	for i := 0; i < maxSanitizePasses; i++ {
		next := html.UnescapeString(s.policy.Sanitize(out))
		if next == out {
			return strings.TrimSpace(out)
		}
		out = next
	}
	// 収束しない入力はエスケープしたまま返す
	return strings.TrimSpace(s.policy.Sanitize(out))
}

// SanitizeValue は値に含まれる文字列を再帰的にSanitizeする。
func (s *textSanitizer) SanitizeValue(v any) any {
	switch val := v.(type) {
	case string:
		return s.Sanitize(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[s.Sanitize(k)] = s.SanitizeValue(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = s.SanitizeValue(elem)
		}
		return out
	default:
		return v
	}
}

var _ TextSanitizer = (*textSanitizer)(nil)
