package handler

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/assetdesk/internal/model"
)

// validator は入力値検証の最初の失敗を保持する。
// 失敗以降のチェックは評価しない。
type validator struct {
	err *model.APIError
}

func (v *validator) fail(msg string) {
	if v.err == nil {
		v.err = model.NewInvalidDataError(msg)
	}
}

// minLen は文字数がn以上であることを検証する。
func (v *validator) minLen(s string, n int, msg string) {
	if utf8.RuneCountInString(s) < n {
		v.fail(msg)
	}
}

// optionalMinLen はnilでない場合のみ文字数を検証する。
func (v *validator) optionalMinLen(s *string, n int, msg string) {
	if s != nil {
		v.minLen(*s, n, msg)
	}
}

// positive は値が正であることを検証する。
func (v *validator) positive(n int64, msg string) {
	if n <= 0 {
		v.fail(msg)
	}
}

// nonNegative は値が指定済みかつ0以上であることを検証する。
func (v *validator) nonNegative(n *int, msg string) {
	if n == nil || *n < 0 {
		v.fail(msg)
	}
}

// dateLayout はAPIで扱う日付の形式（YYYY-MM-DD）。
const dateLayout = "2006-01-02"

// optionalDate は指定された場合にYYYY-MM-DD形式であることを検証する。
func (v *validator) optionalDate(s *string, msg string) {
	if s == nil {
		return
	}
	if _, err := time.Parse(dateLayout, *s); err != nil {
		v.fail(msg)
	}
}

// normalizeDate は空文字列を未設定（nil）として扱う。
func normalizeDate(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
