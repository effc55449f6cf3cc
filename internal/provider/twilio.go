package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	appErrors "github.com/relaytide/campaign-platform/internal/errors"
)

const twilioBaseURL = "https://api.twilio.com/2010-04-01/Accounts"

// Twilio is the production Client, calling the Twilio REST API's
// Messages resource directly, grounded on twilio_service.py's
// send_message request/response shape.
type Twilio struct {
	AccountSid string
	AuthToken  string
	FromNumber string
	HTTPClient *http.Client
}

// NewTwilio constructs a Twilio-backed Client.
func NewTwilio(accountSid, authToken, fromNumber string) *Twilio {
	return &Twilio{
		AccountSid: accountSid,
		AuthToken:  authToken,
		FromNumber: fromNumber,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type twilioErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type twilioMessageBody struct {
	Sid    string `json:"sid"`
	Status string `json:"status"`
}

func (t *Twilio) Send(ctx context.Context, to string, body string) (SendResult, error) {
	from, toFormatted := t.formatAddresses(to)

	form := url.Values{}
	form.Set("To", toFormatted)
	form.Set("From", from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/%s/Messages.json", twilioBaseURL, t.AccountSid)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return SendResult{}, &appErrors.ProviderTransient{Code: 0, Msg: err.Error()}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(t.AccountSid, t.AuthToken)

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return SendResult{}, &appErrors.ProviderTransient{Code: 0, Msg: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return SendResult{}, &appErrors.ProviderTransient{Code: 0, Msg: err.Error()}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var ok twilioMessageBody
		if err := json.Unmarshal(raw, &ok); err != nil {
			return SendResult{}, &appErrors.ProviderTransient{Code: resp.StatusCode, Msg: "malformed success body"}
		}
		return SendResult{ProviderSid: ok.Sid, Status: ok.Status}, nil
	}

	var twErr twilioErrorBody
	_ = json.Unmarshal(raw, &twErr)

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return SendResult{}, &appErrors.ProviderTransient{Code: twErr.Code, Msg: twErr.Message}
	}
	return SendResult{}, &appErrors.ProviderPermanent{Code: twErr.Code, Msg: twErr.Message}
}

func (t *Twilio) formatAddresses(to string) (from string, toFormatted string) {
	if strings.HasPrefix(to, "whatsapp:") {
		return "whatsapp:" + t.FromNumber, to
	}
	return t.FromNumber, to
}
