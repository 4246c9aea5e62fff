package chatflow

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/chatflow/pkg/domain"
)

// DefaultMaxInputSize bounds the bytes of an inbound text answer.
const DefaultMaxInputSize = 4096

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// SanitizeInput enforces the size limit, validates UTF-8 and strips control
// characters other than newline, tab and carriage return.
func SanitizeInput(input string, limit int) (string, error) {
	if limit <= 0 {
		limit = DefaultMaxInputSize
	}
	// Rejected rather than truncated so the stored answer is always what the user sent.
	if len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}

	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	clean := true
	for _, r := range input {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return input, nil
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}

func sanitizeInbound(in domain.Inbound, limit int) (domain.Inbound, error) {
	text, err := SanitizeInput(in.Text, limit)
	if err != nil {
		return domain.Inbound{}, err
	}
	in.Text = text
	if in.Audio != nil {
		ref := *in.Audio
		if ref.URL, err = SanitizeInput(ref.URL, limit); err != nil {
			return domain.Inbound{}, err
		}
		in.Audio = &ref
	}
	return in, nil
}
