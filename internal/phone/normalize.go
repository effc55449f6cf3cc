// Package phone normalizes provider-supplied "From" fields into E.164 and
// strips the channel prefix providers prepend (whatsapp:, sms:, ...).
// Grounded on original_source/app/core/data_model.py's
// extract_channel_and_phone, reimplemented with
// github.com/nyaruka/phonenumbers for the actual E.164 validation instead
// of hand-rolled regexes.
package phone

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)

// ExtractChannelAndPhone strips a provider channel prefix (whatsapp:,
// sms:, messenger:, voice:) from raw and returns the channel type plus
// the phone component, unvalidated.
func ExtractChannelAndPhone(raw string) (channel, phoneComponent string) {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, "whatsapp:"):
		return "whatsapp", strings.TrimSpace(strings.TrimPrefix(raw, "whatsapp:"))
	case strings.HasPrefix(raw, "sms:"):
		return "sms", strings.TrimSpace(strings.TrimPrefix(raw, "sms:"))
	case strings.HasPrefix(raw, "messenger:"):
		return "messenger", strings.TrimSpace(strings.TrimPrefix(raw, "messenger:"))
	case strings.HasPrefix(raw, "voice:"):
		return "voice", strings.TrimSpace(strings.TrimPrefix(raw, "voice:"))
	default:
		return "sms", raw
	}
}

// NormalizeE164 validates and canonicalizes phoneComponent to E.164 using
// libphonenumber, defaulting the region hint to defaultRegion when the
// number has no leading '+'. Returns an error if the number cannot be
// parsed or is not a valid number.
func NormalizeE164(phoneComponent, defaultRegion string) (string, error) {
	if phoneComponent == "" {
		return "", fmt.Errorf("empty phone number")
	}
	region := defaultRegion
	if region == "" {
		region = "US"
	}
	parsed, err := phonenumbers.Parse(phoneComponent, region)
	if err != nil {
		return "", fmt.Errorf("parse phone %q: %w", phoneComponent, err)
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return "", fmt.Errorf("invalid phone number %q", phoneComponent)
	}
	e164 := phonenumbers.Format(parsed, phonenumbers.E164)
	if !IsE164(e164) {
		return "", fmt.Errorf("formatted number %q is not valid E.164", e164)
	}
	return e164, nil
}

// IsE164 reports whether s matches the spec's E.164 shape: leading '+'
// and 8-15 digits.
func IsE164(s string) bool {
	return e164Pattern.MatchString(s)
}
