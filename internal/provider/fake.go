package provider

import (
	"context"
	"fmt"
	"sync"
)

// Fake is a deterministic test double keyed by (to, body): an outcome
// scripted with FailNext applies to the next Send of that pair only and
// is then cleared; every other Send succeeds with a sequential fake SID,
// so tests can script failures without timing-dependent flakiness.
type Fake struct {
	mu        sync.Mutex
	Responses map[string]error
	Sent      []FakeSend
	nextSid   int
}

// FakeSend records a single call for assertions.
type FakeSend struct {
	To   string
	Body string
}

// NewFake constructs an empty Fake provider.
func NewFake() *Fake {
	return &Fake{Responses: make(map[string]error)}
}

func fakeKey(to, body string) string {
	return to + "\x00" + body
}

// FailNext configures the next Send for (to, body) to return err.
func (f *Fake) FailNext(to, body string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Responses[fakeKey(to, body)] = err
}

func (f *Fake) Send(ctx context.Context, to string, body string) (SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Sent = append(f.Sent, FakeSend{To: to, Body: body})

	if err, ok := f.Responses[fakeKey(to, body)]; ok {
		delete(f.Responses, fakeKey(to, body))
		if err != nil {
			return SendResult{}, err
		}
	}

	f.nextSid++
	return SendResult{ProviderSid: fmt.Sprintf("SMFAKE%06d", f.nextSid), Status: "queued"}, nil
}
