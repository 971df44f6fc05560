package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/imrishuroy/checkout-orderflow/internal/provider"
)

// SignatureHeader carries "t=<unix>,v1=<hex hmac>" for every webhook delivery.
const SignatureHeader = "Stripe-Signature"

// DefaultTolerance is how old a signed timestamp may be.
const DefaultTolerance = 5 * time.Minute

var (
	ErrNoSignature       = errors.New("webhook: no signature header")
	ErrInvalidHeader     = errors.New("webhook: malformed signature header")
	ErrTimestampExpired  = errors.New("webhook: timestamp outside tolerance")
	ErrSignatureMismatch = errors.New("webhook: no matching signature")
)

// Verify checks header against payload signed with secret at a time within tolerance of now.
func Verify(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if header == "" {
		return ErrNoSignature
	}

	var (
		ts         int64
		haveTS     bool
		signatures [][]byte
	)
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return ErrInvalidHeader
		}
		switch k {
		case "t":
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return ErrInvalidHeader
			}
			ts, haveTS = n, true
		case "v1":
			sig, err := hex.DecodeString(v)
			if err != nil {
				// other schemes may use other encodings; skip
				continue
			}
			signatures = append(signatures, sig)
		}
	}
	if !haveTS || len(signatures) == 0 {
		return ErrInvalidHeader
	}

	signedAt := time.Unix(ts, 0)
	if tolerance > 0 && (now.Sub(signedAt) > tolerance || signedAt.Sub(now) > tolerance) {
		return ErrTimestampExpired
	}

	expected := computeSignature(signedAt, payload, secret)
	for _, sig := range signatures {
		if hmac.Equal(expected, sig) {
			return nil
		}
	}
	return ErrSignatureMismatch
}

// ConstructEvent verifies the delivery and decodes the event.
func ConstructEvent(payload []byte, header, secret string, now time.Time) (provider.Event, error) {
	if err := Verify(payload, header, secret, DefaultTolerance, now); err != nil {
		return provider.Event{}, err
	}
	return ParseEvent(payload)
}

// ParseEvent decodes an event without verifying it.
func ParseEvent(payload []byte) (provider.Event, error) {
	var ev provider.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return provider.Event{}, fmt.Errorf("decode event: %w", err)
	}
	if ev.ID == "" || ev.Type == "" {
		return provider.Event{}, fmt.Errorf("decode event: missing id or type")
	}
	return ev, nil
}

// SignHeader builds a signature header for payload; used by tests and local tooling.
func SignHeader(payload []byte, secret string, at time.Time) string {
	sig := computeSignature(at, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(sig))
}

func computeSignature(t time.Time, payload []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(t.Unix(), 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return mac.Sum(nil)
}
