package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const testSecret = "s3cret"

func hmacSHA256(secret, payload string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

func TestVerifier_Shopify(t *testing.T) {
	body := `{"id":1}`
	v := NewVerifier(time.Minute)

	tests := []struct {
		name   string
		header string
		err    error
	}{
		{"valid", base64.StdEncoding.EncodeToString(hmacSHA256(testSecret, body)), nil},
		{"wrong secret", base64.StdEncoding.EncodeToString(hmacSHA256("other", body)), ErrInvalidSignature},
		{"not base64", "%%%", ErrInvalidSignature},
		{"missing", "", ErrInvalidSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			h.Set("X-Shopify-Hmac-Sha256", tt.header)

			err := v.Verify("Shopify", testSecret, h, []byte(body))

			if tt.err == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestVerifier_GitHub(t *testing.T) {
	body := `{"zen":"keep it simple"}`
	v := NewVerifier(time.Minute)

	h := http.Header{}
	h.Set("X-Hub-Signature-256", "sha256="+hex.EncodeToString(hmacSHA256(testSecret, body)))
	assert.NoError(t, v.Verify("github", testSecret, h, []byte(body)))

	assert.ErrorIs(t, v.Verify("github", testSecret, h, []byte(body+" ")), ErrInvalidSignature)

	h.Set("X-Hub-Signature-256", "sha1=abcd")
	assert.ErrorIs(t, v.Verify("github", testSecret, h, []byte(body)), ErrInvalidSignature)
}

func TestVerifier_Stripe(t *testing.T) {
	body := `{"id":"evt_1","type":"customer.created"}`
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	v := NewVerifier(5 * time.Minute)
	v.now = func() time.Time { return now }

	header := func(ts time.Time, secret string) http.Header {
		t := strconv.FormatInt(ts.Unix(), 10)
		h := http.Header{}
		h.Set("Stripe-Signature", "t="+t+",v1=deadbeef,v1="+hex.EncodeToString(hmacSHA256(secret, t+"."+body)))
		return h
	}

	t.Run("valid with a rotated signature alongside", func(t *testing.T) {
		assert.NoError(t, v.Verify("stripe", testSecret, header(now, testSecret), []byte(body)))
	})

	t.Run("wrong secret", func(t *testing.T) {
		assert.ErrorIs(t, v.Verify("stripe", testSecret, header(now, "other"), []byte(body)), ErrInvalidSignature)
	})

	t.Run("outside tolerance", func(t *testing.T) {
		err := v.Verify("stripe", testSecret, header(now.Add(-6*time.Minute), testSecret), []byte(body))
		assert.ErrorIs(t, err, ErrInvalidSignature)

		err = v.Verify("stripe", testSecret, header(now.Add(6*time.Minute), testSecret), []byte(body))
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("malformed header", func(t *testing.T) {
		h := http.Header{}
		h.Set("Stripe-Signature", "garbage")
		assert.ErrorIs(t, v.Verify("stripe", testSecret, h, []byte(body)), ErrInvalidSignature)
	})
}

func TestVerifier_UnsupportedSource(t *testing.T) {
	err := NewVerifier(time.Minute).Verify("paypal", testSecret, http.Header{}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}
