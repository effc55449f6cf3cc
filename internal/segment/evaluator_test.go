package segment_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaytide/campaign-platform/internal/model"
	"github.com/relaytide/campaign-platform/internal/segment"
)

type fakeLister struct {
	pages [][]model.Recipient
}

func (f *fakeLister) ListRecipientsPage(ctx context.Context, cursor string, limit int, onlyOptIn bool) ([]model.Recipient, string, bool, error) {
	idx := 0
	if cursor != "" {
		var err error
		idx, err = pageIndex(cursor)
		if err != nil {
			return nil, "", false, err
		}
	}
	if idx >= len(f.pages) {
		return nil, "", false, nil
	}
	next := idx + 1
	hasMore := next < len(f.pages)
	return f.pages[idx], cursorFor(next), hasMore, nil
}

func cursorFor(idx int) string {
	b, _ := json.Marshal(idx)
	return string(b)
}

func pageIndex(cursor string) (int, error) {
	var idx int
	err := json.Unmarshal([]byte(cursor), &idx)
	return idx, err
}

func recipient(e164, city string) model.Recipient {
	attrs, _ := json.Marshal(map[string]string{"city": city})
	return model.Recipient{PhoneE164: e164, Attributes: attrs, ConsentState: model.ConsentOptIn}
}

func TestEvaluate_FiltersAndPages(t *testing.T) {
	lister := &fakeLister{pages: [][]model.Recipient{
		{recipient("+14155550100", "Lagos"), recipient("+14155550101", "Nairobi")},
		{recipient("+14155550102", "Lagos")},
	}}
	tree := segment.Leaf{Attribute: "city", Operator: segment.OpEquals, Value: "Lagos"}

	var matched []string
	pageBoundaries := 0
	for result := range segment.Evaluate(context.Background(), lister, tree, "") {
		require.NoError(t, result.Err)
		if result.PageDone {
			pageBoundaries++
			continue
		}
		matched = append(matched, result.PhoneE164)
	}
	assert.Equal(t, []string{"+14155550100", "+14155550102"}, matched)
	assert.Equal(t, 2, pageBoundaries)
}

func TestEvaluate_ResumesFromCursor(t *testing.T) {
	lister := &fakeLister{pages: [][]model.Recipient{
		{recipient("+14155550100", "Lagos")},
		{recipient("+14155550101", "Lagos")},
	}}
	tree := segment.Leaf{Attribute: "city", Operator: segment.OpEquals, Value: "Lagos"}

	var matched []string
	for result := range segment.Evaluate(context.Background(), lister, tree, cursorFor(1)) {
		require.NoError(t, result.Err)
		if result.PageDone {
			continue
		}
		matched = append(matched, result.PhoneE164)
	}
	assert.Equal(t, []string{"+14155550101"}, matched)
}
