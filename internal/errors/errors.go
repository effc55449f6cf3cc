// internal/errors/errors.go
package appErrors

import "fmt"

// ErrCampaignNotFound is a sentinel error.
type ErrCampaignNotFound struct {
	CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

// NewCampaignNotFound is the helper constructor for ErrCampaignNotFound.
func NewCampaignNotFound(id int) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrRecipientNotFound is returned when a recipient lookup misses.
type ErrRecipientNotFound struct {
	PhoneE164 string
}

func (e *ErrRecipientNotFound) Error() string {
	return fmt.Sprintf("recipient %s not found", e.PhoneE164)
}

func NewRecipientNotFound(phone string) error {
	return &ErrRecipientNotFound{PhoneE164: phone}
}

// ValidationError marks malformed input at a system boundary. Not retried;
// surfaced to the caller as 4xx.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ConsentBlocked means the recipient is not eligible to receive a message.
// The message transitions to FAILED; not retried.
type ConsentBlocked struct {
	PhoneE164 string
	Reason    string
}

func (e *ConsentBlocked) Error() string {
	return fmt.Sprintf("recipient %s not eligible: %s", e.PhoneE164, e.Reason)
}

// QuietHoursBlocked means dispatch fell inside the recipient's quiet
// window. The message is rescheduled, never failed.
type QuietHoursBlocked struct {
	PhoneE164  string
	RetryAfter string
}

func (e *QuietHoursBlocked) Error() string {
	return fmt.Sprintf("recipient %s in quiet hours, retry after %s", e.PhoneE164, e.RetryAfter)
}

// RateLimited means the campaign's sliding window is full. The message is
// rescheduled and does not consume the retry budget.
type RateLimited struct {
	CampaignID int
	RetryAfter string
}

func (e *RateLimited) Error() string {
	return fmt.Sprintf("campaign %d rate limited, retry after %s", e.CampaignID, e.RetryAfter)
}

// ContentInvalid means rendered content failed structural validation. The
// message fails immediately; not retried.
type ContentInvalid struct {
	MessageID string
	Reason    string
}

func (e *ContentInvalid) Error() string {
	return fmt.Sprintf("message %s content invalid: %s", e.MessageID, e.Reason)
}

// ProviderTransient wraps a retryable provider-side failure (deadline,
// network error, provider 5xx, or a provider-reported transient code).
type ProviderTransient struct {
	Code int
	Msg  string
}

func (e *ProviderTransient) Error() string {
	return fmt.Sprintf("transient provider error %d: %s", e.Code, e.Msg)
}

// ProviderPermanent wraps a non-retryable provider-side failure (invalid
// recipient, blocked content, or a provider-reported permanent code).
type ProviderPermanent struct {
	Code int
	Msg  string
}

func (e *ProviderPermanent) Error() string {
	return fmt.Sprintf("permanent provider error %d: %s", e.Code, e.Msg)
}

// StorageError wraps a Store failure. Retried at the Store layer; if it
// keeps failing it escalates to a campaign-level FAILED.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func NewStorageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
