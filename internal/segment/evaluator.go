package segment

import (
	"context"

	"github.com/relaytide/campaign-platform/internal/model"
)

// RecipientLister is the Store capability the evaluator pages through.
// ListRecipientsPage must return rows in stable E.164-ascending order so
// paged materialization is resumable; onlyOptIn, when true, asks the
// Store to push down the reserved consent_state=OPT_IN predicate (the
// one condition every evaluation implicitly applies at the root) rather
// than filtering it client-side.
type RecipientLister interface {
	ListRecipientsPage(ctx context.Context, cursor string, limit int, onlyOptIn bool) (rows []model.Recipient, nextCursor string, hasMore bool, err error)
}

// Result is one item of the evaluator's output stream. A row result
// carries PhoneE164 with no Cursor; once every row of a page has been
// emitted, a trailing PageDone result carries that page's resumption
// cursor and no PhoneE164. Callers must persist Cursor only off a
// PageDone result, never off a row result, or a crash between two rows
// of the same page resumes past the unprocessed remainder of that page.
type Result struct {
	PhoneE164 string
	Cursor    string
	PageDone  bool
	Err       error
}

const defaultPageSize = 200

// Evaluate translates ruleTree into a bounded, de-duplicated,
// E.164-ascending stream of recipient identifiers, implicitly AND-ing
// consent_state = OPT_IN at the root (spec.md §4.4). startCursor resumes
// a previously interrupted evaluation (spec.md §4.7 materialization
// resumability).
func Evaluate(ctx context.Context, lister RecipientLister, ruleTree Node, startCursor string) <-chan Result {
	out := make(chan Result)
	tree := WithImplicitConsentFilter(ruleTree)

	go func() {
		defer close(out)
		cursor := startCursor
		for {
			rows, next, hasMore, err := lister.ListRecipientsPage(ctx, cursor, defaultPageSize, true)
			if err != nil {
				select {
				case out <- Result{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			for _, r := range rows {
				attrs, err := r.Attrs()
				if err != nil {
					select {
					case out <- Result{Err: err}:
					case <-ctx.Done():
						return
					}
					continue
				}
				subject := Subject{ConsentState: string(r.ConsentState), Attributes: attrs}
				ok, err := Match(tree, subject)
				if err != nil {
					select {
					case out <- Result{Err: err}:
					case <-ctx.Done():
						return
					}
					continue
				}
				if !ok {
					continue
				}
				select {
				case out <- Result{PhoneE164: r.PhoneE164}:
				case <-ctx.Done():
					return
				}
			}
			select {
			case out <- Result{Cursor: next, PageDone: true}:
			case <-ctx.Done():
				return
			}
			if !hasMore {
				return
			}
			cursor = next
		}
	}()

	return out
}

// Cursor is exposed so callers (the orchestrator) can persist and resume
// materialization progress without importing unexported evaluator state.
type Cursor = string
