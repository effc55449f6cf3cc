package segment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaytide/campaign-platform/internal/segment"
)

func subject(attrs map[string]any) segment.Subject {
	return segment.Subject{ConsentState: "OPT_IN", Attributes: attrs}
}

func TestMatch_Equals(t *testing.T) {
	leaf := segment.Leaf{Attribute: "city", Operator: segment.OpEquals, Value: "Lagos"}
	ok, err := segment.Match(leaf, subject(map[string]any{"city": "Lagos"}))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = segment.Match(leaf, subject(map[string]any{"city": "Nairobi"}))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatch_Exists(t *testing.T) {
	leaf := segment.Leaf{Attribute: "city", Operator: segment.OpExists}
	ok, _ := segment.Match(leaf, subject(map[string]any{"city": "Lagos"}))
	assert.True(t, ok)

	ok, _ = segment.Match(leaf, subject(map[string]any{}))
	assert.False(t, ok)
}

func TestMatch_MissingAttributeNonExists(t *testing.T) {
	leaf := segment.Leaf{Attribute: "city", Operator: segment.OpEquals, Value: "Lagos"}
	ok, err := segment.Match(leaf, subject(map[string]any{}))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatch_In(t *testing.T) {
	leaf := segment.Leaf{Attribute: "city", Operator: segment.OpIn, Value: []any{"Lagos", "Nairobi"}}
	ok, _ := segment.Match(leaf, subject(map[string]any{"city": "Nairobi"}))
	assert.True(t, ok)
	ok, _ = segment.Match(leaf, subject(map[string]any{"city": "Accra"}))
	assert.False(t, ok)
}

func TestMatch_Numeric(t *testing.T) {
	leaf := segment.Leaf{Attribute: "age", Operator: segment.OpGTE, Value: float64(18)}
	ok, _ := segment.Match(leaf, subject(map[string]any{"age": float64(21)}))
	assert.True(t, ok)
	ok, _ = segment.Match(leaf, subject(map[string]any{"age": float64(10)}))
	assert.False(t, ok)
}

func TestMatch_Matches(t *testing.T) {
	leaf := segment.Leaf{Attribute: "phone", Operator: segment.OpMatches, Value: `\+1415\d+`}
	ok, err := segment.Match(leaf, subject(map[string]any{"phone": "+14155550100"}))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatch_CompositeAndOr(t *testing.T) {
	and := segment.Composite{Logic: segment.LogicAnd, Conditions: []segment.Node{
		segment.Leaf{Attribute: "city", Operator: segment.OpEquals, Value: "Lagos"},
		segment.Leaf{Attribute: "age", Operator: segment.OpGTE, Value: float64(18)},
	}}
	ok, _ := segment.Match(and, subject(map[string]any{"city": "Lagos", "age": float64(20)}))
	assert.True(t, ok)
	ok, _ = segment.Match(and, subject(map[string]any{"city": "Lagos", "age": float64(10)}))
	assert.False(t, ok)

	or := segment.Composite{Logic: segment.LogicOr, Conditions: and.Conditions}
	ok, _ = segment.Match(or, subject(map[string]any{"city": "Lagos", "age": float64(10)}))
	assert.True(t, ok)
}

func TestMatch_ConsentStatePseudoAttribute(t *testing.T) {
	leaf := segment.Leaf{Attribute: "consent_state", Operator: segment.OpEquals, Value: "OPT_IN"}
	ok, _ := segment.Match(leaf, subject(map[string]any{}))
	assert.True(t, ok)
}
