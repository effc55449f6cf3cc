// Package template implements deterministic {name}-placeholder
// substitution with strict variable-presence checks, per spec.md §4.3.
// Grounded on the teacher's internal/service/template_service.go
// (strings.ReplaceAll-based substitution), generalized from a fixed
// placeholder set to the template's declared Variables list.
package template

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/relaytide/campaign-platform/internal/model"
)

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Result is the outcome of a Render call.
type Result struct {
	Content string
	Missing []string
}

// Render substitutes every {name} placeholder in tmpl.Content with the
// corresponding (non-empty) value from attrs. Any declared variable
// absent or empty from attrs is collected into Missing; when Missing is
// non-empty rendering fails and Content is the empty string.
func Render(tmpl model.Template, attrs map[string]any) (Result, error) {
	missing := make([]string, 0)
	for _, v := range tmpl.Variables {
		val, ok := attrs[v]
		if !ok || isEmptyValue(val) {
			missing = append(missing, v)
		}
	}
	if len(missing) > 0 {
		return Result{Missing: missing}, fmt.Errorf("template: missing variables: %s", strings.Join(missing, ", "))
	}

	content := placeholderPattern.ReplaceAllStringFunc(tmpl.Content, func(token string) string {
		name := token[1 : len(token)-1]
		if v, ok := attrs[name]; ok {
			return fmt.Sprint(v)
		}
		return token
	})

	return Result{Content: content}, nil
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	default:
		return false
	}
}

// ValidateDeclaration enforces the Template invariant from spec.md §3:
// every placeholder appearing in content must be in the declared
// variable list.
func ValidateDeclaration(tmpl model.Template) error {
	declared := make(map[string]bool, len(tmpl.Variables))
	for _, v := range tmpl.Variables {
		declared[v] = true
	}
	for _, match := range placeholderPattern.FindAllStringSubmatch(tmpl.Content, -1) {
		if !declared[match[1]] {
			return fmt.Errorf("template: placeholder {%s} not in declared variables", match[1])
		}
	}
	return nil
}
