package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	SourceShopify = "shopify"
	SourceStripe  = "stripe"
	SourceGitHub  = "github"

	headerShopifyHmac   = "X-Shopify-Hmac-Sha256"
	headerStripe        = "Stripe-Signature"
	headerGitHubHmac    = "X-Hub-Signature-256"
	githubSignatureAlgo = "sha256="
)

// Verifier checks provider signatures. Stripe signatures older or newer than
// tolerance are rejected.
type Verifier struct {
	tolerance time.Duration
	now       func() time.Time
}

func NewVerifier(tolerance time.Duration) *Verifier {
	return &Verifier{tolerance: tolerance, now: time.Now}
}

// Verify authenticates body against the signature header of source.
func (v *Verifier) Verify(source, secret string, headers http.Header, body []byte) error {
	switch strings.ToLower(source) {
	case SourceShopify:
		return verifyShopify(secret, headers, body)
	case SourceStripe:
		return v.verifyStripe(secret, headers, body)
	case SourceGitHub:
		return verifyGitHub(secret, headers, body)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedSource, source)
	}
}

// VerifySignature checks with the default tolerance.
func VerifySignature(source, secret string, headers http.Header, body []byte) error {
	return NewVerifier(defaultSignatureTolerance).Verify(source, secret, headers, body)
}

func sign(secret string, parts ...[]byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	for _, p := range parts {
		mac.Write(p)
	}
	return mac.Sum(nil)
}

func verifyShopify(secret string, headers http.Header, body []byte) error {
	got, err := base64.StdEncoding.DecodeString(headers.Get(headerShopifyHmac))
	if err != nil || len(got) == 0 {
		return ErrInvalidSignature
	}
	if !hmac.Equal(got, sign(secret, body)) {
		return ErrInvalidSignature
	}
	return nil
}

func verifyGitHub(secret string, headers http.Header, body []byte) error {
	header := headers.Get(headerGitHubHmac)
	if !strings.HasPrefix(header, githubSignatureAlgo) {
		return ErrInvalidSignature
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, githubSignatureAlgo))
	if err != nil || !hmac.Equal(got, sign(secret, body)) {
		return ErrInvalidSignature
	}
	return nil
}

// verifyStripe accepts the header when any v1 signature matches
// HMAC(secret, "<t>.<body>").
func (v *Verifier) verifyStripe(secret string, headers http.Header, body []byte) error {
	var (
		timestamp  string
		signatures [][]byte
	)
	for _, item := range strings.Split(headers.Get(headerStripe), ",") {
		k, val, ok := strings.Cut(strings.TrimSpace(item), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			timestamp = val
		case "v1":
			if sig, err := hex.DecodeString(val); err == nil {
				signatures = append(signatures, sig)
			}
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return ErrInvalidSignature
	}

	secs, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	age := v.now().Sub(time.Unix(secs, 0))
	if age > v.tolerance || age < -v.tolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
	}

	expected := sign(secret, []byte(timestamp), []byte("."), body)
	for _, sig := range signatures {
		if hmac.Equal(sig, expected) {
			return nil
		}
	}
	return ErrInvalidSignature
}
