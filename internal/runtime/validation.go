package runtime

import (
	"math"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/chatflow/pkg/domain"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9\s\-().]+$`)

var dateLayouts = []string{"2006-01-02", "02/01/2006", time.RFC3339}

// validateInput checks raw against the node's input type. It returns the value
// to store, or a non-empty reason when raw is rejected.
func validateInput(cfg *domain.InputConfig, raw string) (string, string) {
	if raw == "" {
		return "", "answer is empty"
	}

	switch cfg.InputType {
	case domain.InputNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return "", "not a number"
		}
	case domain.InputEmail:
		addr, err := mail.ParseAddress(raw)
		if err != nil || addr.Address != raw {
			return "", "not an email address"
		}
	case domain.InputPhone:
		if !phonePattern.MatchString(raw) {
			return "", "not a phone number"
		}
		digits := 0
		for _, r := range raw {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		if digits < 7 || digits > 15 {
			return "", "phone number must have 7 to 15 digits"
		}
	case domain.InputDate:
		if !isDate(raw) {
			return "", "not a date"
		}
	case domain.InputOption:
		for _, opt := range cfg.Options {
			if strings.EqualFold(strings.TrimSpace(opt), raw) {
				return opt, ""
			}
		}
		return "", "not one of " + strings.Join(cfg.Options, ", ")
	}
	return raw, ""
}

func isDate(raw string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, raw); err == nil {
			return true
		}
	}
	return false
}
