package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// ConfirmationTemplate is the body of the order confirmation SMS; %s is the customer name.
const ConfirmationTemplate = "Hi %s, we have received your order. We will verify your age and send your package out as soon as possible. Reply to this number if you have any questions."

var ErrMissingRecipient = errors.New("notify: recipient phone number is empty")

// MessageAPI is the subset of the Twilio REST API used to send SMS.
type MessageAPI interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// SMS sends customer notifications through Twilio.
type SMS struct {
	api        MessageAPI
	accountSID string
	from       string
}

// NewSMS wires a Twilio client whose HTTP transport goes through proxyURL when it is set.
func NewSMS(accountSID, authToken, from, proxyURL string) (*SMS, error) {
	hc, err := NewHTTPClient(proxyURL)
	if err != nil {
		return nil, err
	}

	base := &client.Client{
		Credentials: client.NewCredentials(accountSID, authToken),
		HTTPClient:  hc,
	}
	base.SetAccountSid(accountSID)

	rc := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
		Client:   base,
	})
	return NewSMSWithAPI(rc.Api, accountSID, from), nil
}

func NewSMSWithAPI(api MessageAPI, accountSID, from string) *SMS {
	return &SMS{api: api, accountSID: accountSID, from: from}
}

// NewHTTPClient returns the client used for Twilio calls. An empty proxyURL uses the
// environment's default proxy settings.
func NewHTTPClient(proxyURL string) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(u)
	}
	return &http.Client{Transport: transport, Timeout: 15 * time.Second}, nil
}

// SendConfirmation sends the fixed order confirmation text and returns the message sid.
// The Twilio client is not context aware; ctx is only checked before sending.
func (s *SMS) SendConfirmation(ctx context.Context, name, phone string) (string, error) {
	if phone == "" {
		return "", ErrMissingRecipient
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &openapi.CreateMessageParams{}
	params.SetPathAccountSid(s.accountSID)
	params.SetTo(phone)
	params.SetFrom(s.from)
	params.SetBody(fmt.Sprintf(ConfirmationTemplate, name))

	msg, err := s.api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("send sms: %w", err)
	}
	if msg == nil || msg.Sid == nil {
		return "", nil
	}
	return *msg.Sid, nil
}
