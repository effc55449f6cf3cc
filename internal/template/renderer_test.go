package template_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaytide/campaign-platform/internal/model"
	"github.com/relaytide/campaign-platform/internal/template"
)

func TestRender(t *testing.T) {
	tmpl := model.Template{
		Content:   "Hi {first_name}, your order {order_id} shipped!",
		Variables: []string{"first_name", "order_id"},
	}
	result, err := template.Render(tmpl, map[string]any{"first_name": "Amara", "order_id": 42})
	require.NoError(t, err)
	assert.Equal(t, "Hi Amara, your order 42 shipped!", result.Content)
	assert.Empty(t, result.Missing)
}

func TestRender_MissingVariable(t *testing.T) {
	tmpl := model.Template{
		Content:   "Hi {first_name}!",
		Variables: []string{"first_name"},
	}
	result, err := template.Render(tmpl, map[string]any{})
	require.Error(t, err)
	assert.Equal(t, []string{"first_name"}, result.Missing)
	assert.Empty(t, result.Content)
}

func TestRender_EmptyStringTreatedAsMissing(t *testing.T) {
	tmpl := model.Template{
		Content:   "Hi {first_name}!",
		Variables: []string{"first_name"},
	}
	_, err := template.Render(tmpl, map[string]any{"first_name": ""})
	assert.Error(t, err)
}

func TestValidateDeclaration(t *testing.T) {
	ok := model.Template{Content: "Hi {first_name}", Variables: []string{"first_name"}}
	assert.NoError(t, template.ValidateDeclaration(ok))

	undeclared := model.Template{Content: "Hi {first_name} {last_name}", Variables: []string{"first_name"}}
	assert.Error(t, template.ValidateDeclaration(undeclared))
}

func TestValidateRenderedContent(t *testing.T) {
	assert.NoError(t, template.ValidateRenderedContent("hello there"))
	assert.Error(t, template.ValidateRenderedContent(""))
	assert.Error(t, template.ValidateRenderedContent("still has {a_placeholder}"))
}
