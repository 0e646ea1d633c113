package binance

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"exgate/internal/core"
)

// Params is a request parameter set. It always serializes in ascending key
// order because the exchange recomputes the signature over the same string.
type Params map[string]string

func (p Params) encode() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(p[k])
	}
	return b.String()
}

func (p Params) clone() Params {
	out := make(Params, len(p)+2)
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Credentials are read once at startup and never change.
type Credentials struct {
	APIKey    string
	SecretKey string
	Host      string
}

func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{host=%s api_key=%s secret_key=%s}", c.Host, redact(c.APIKey), redact(c.SecretKey))
}

func (c Credentials) GoString() string { return c.String() }

func redact(v string) string {
	if v == "" {
		return `""`
	}
	return "***"
}

// Signer builds canonical query strings and signs them with HMAC-SHA256.
type Signer struct {
	host   string
	secret []byte
	now    func() time.Time
}

func NewSigner(creds Credentials) *Signer {
	return &Signer{
		host:   strings.TrimRight(creds.Host, "/"),
		secret: []byte(creds.SecretKey),
		now:    time.Now,
	}
}

// BuildRequest serializes params for a public endpoint.
func BuildRequest(params Params) string {
	return params.encode()
}

// BuildSignedRequest adds recvWindow (when > 0) and the current timestamp to
// a copy of params and serializes it. The caller's map is not modified.
func (s *Signer) BuildSignedRequest(params Params, recvWindow int64) (string, error) {
	ts, err := s.timestamp()
	if err != nil {
		return "", err
	}
	out := params.clone()
	if recvWindow > 0 {
		out["recvWindow"] = strconv.FormatInt(recvWindow, 10)
	}
	out["timestamp"] = strconv.FormatInt(ts, 10)
	return out.encode(), nil
}

func (s *Signer) timestamp() (int64, error) {
	now := s.now()
	if now.Before(time.Unix(0, 0)) {
		return 0, core.Clock(fmt.Errorf("system clock %s is before the unix epoch", now.UTC().Format(time.RFC3339)))
	}
	return now.UnixMilli(), nil
}

// Signature returns the hex HMAC-SHA256 of body.
func (s *Signer) Signature(body string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

// Sign appends the signature to body and returns the full request URL.
func (s *Signer) Sign(endpoint, body string) string {
	return s.host + endpoint + "?" + body + "&signature=" + s.Signature(body)
}

// URL joins host, endpoint and an unsigned query.
func (s *Signer) URL(endpoint, query string) string {
	if query == "" {
		return s.host + endpoint
	}
	return s.host + endpoint + "?" + query
}
