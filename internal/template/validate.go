package template

import "fmt"

const maxContentLength = 4096

// ValidateRenderedContent re-validates rendered content at dispatch time
// (spec.md §4.7 stage 4): non-empty, within the length budget, and free
// of any unsubstituted {placeholder} token. Structural checks only —
// editorial/spam filtering is an optional plug-in, not part of the core
// contract (spec.md §9).
func ValidateRenderedContent(content string) error {
	if content == "" {
		return fmt.Errorf("template: rendered content is empty")
	}
	if len(content) > maxContentLength {
		return fmt.Errorf("template: rendered content exceeds %d bytes", maxContentLength)
	}
	if placeholderPattern.MatchString(content) {
		return fmt.Errorf("template: rendered content still contains an unsubstituted placeholder")
	}
	return nil
}

// ContentValidator is the optional editorial plug-in point (spam regex,
// profanity filters, ...). No implementation ships by default; core
// dispatch only calls ValidateRenderedContent.
type ContentValidator interface {
	Validate(content string) error
}
