package notify

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

type mockMessages struct {
	params []*openapi.CreateMessageParams
	err    error
}

func (m *mockMessages) CreateMessage(p *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error) {
	m.params = append(m.params, p)
	if m.err != nil {
		return nil, m.err
	}
	sid := "SM123"
	return &openapi.ApiV2010Message{Sid: &sid}, nil
}

func TestSendConfirmation(t *testing.T) {
	mock := &mockMessages{}
	s := NewSMSWithAPI(mock, "AC1", "+15005550006")

	sid, err := s.SendConfirmation(context.Background(), "Jenny", "+447700900123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sid != "SM123" {
		t.Fatalf("sid mismatch: %s", sid)
	}
	p := mock.params[0]
	if *p.To != "+447700900123" || *p.From != "+15005550006" {
		t.Fatalf("to/from mismatch: %s %s", *p.To, *p.From)
	}
	if !strings.HasPrefix(*p.Body, "Hi Jenny,") {
		t.Fatalf("unexpected body: %s", *p.Body)
	}
	if *p.PathAccountSid != "AC1" {
		t.Fatalf("account sid not set on path")
	}
}

func TestSendConfirmation_Errors(t *testing.T) {
	boom := errors.New("twilio down")
	s := NewSMSWithAPI(&mockMessages{err: boom}, "AC1", "+1")

	if _, err := s.SendConfirmation(context.Background(), "Jenny", ""); !errors.Is(err, ErrMissingRecipient) {
		t.Fatalf("expected ErrMissingRecipient, got %v", err)
	}
	if _, err := s.SendConfirmation(context.Background(), "Jenny", "+44"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped send error, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.SendConfirmation(ctx, "Jenny", "+44"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewHTTPClient_Proxy(t *testing.T) {
	hc, err := NewHTTPClient("http://proxy.internal:3128")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr := hc.Transport.(*http.Transport)
	req := &http.Request{URL: &url.URL{Scheme: "https", Host: "api.twilio.com"}}
	u, err := tr.Proxy(req)
	if err != nil || u == nil || u.Host != "proxy.internal:3128" {
		t.Fatalf("proxy not applied: %v %v", u, err)
	}

	if _, err := NewHTTPClient("://bad"); err == nil {
		t.Fatal("expected parse error")
	}
}
