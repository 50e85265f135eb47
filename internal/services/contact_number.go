package services

import (
	"regexp"
	"strings"
)

const minContactDigits = 8

var (
	bareNumberPattern  = regexp.MustCompile(`^\+?(\d{8,})$`)
	shortLinkPattern   = regexp.MustCompile(`wa\.me/\+?(\d{8,})`)
	sendLinkPattern    = regexp.MustCompile(`[?&]phone=\+?(\d{8,})`)
	nonDigitPattern    = regexp.MustCompile(`\D+`)
	contactLinkPattern = []*regexp.Regexp{bareNumberPattern, shortLinkPattern, sendLinkPattern}
)

// ExtractContactNumber pulls a dialable number out of a bare number, a wa.me link or an
// api.whatsapp.com/send?phone= link. Any other input is reduced to its digits, which must
// number at least eight.
func ExtractContactNumber(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	for _, pattern := range contactLinkPattern {
		if match := pattern.FindStringSubmatch(trimmed); match != nil {
			return match[1], true
		}
	}
	digits := nonDigitPattern.ReplaceAllString(trimmed, "")
	if len(digits) >= minContactDigits {
		return digits, true
	}
	return "", false
}

// ResolveContactNumber prefers the WhatsApp link over the general phone field.
func ResolveContactNumber(settings SiteSettings) (string, bool) {
	for _, candidate := range []*string{settings.WhatsAppURL, settings.Phone} {
		if candidate == nil {
			continue
		}
		if number, ok := ExtractContactNumber(*candidate); ok {
			return number, true
		}
	}
	return "", false
}
