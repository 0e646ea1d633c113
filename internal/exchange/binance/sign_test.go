package binance

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"exgate/internal/core"
)

func fixedSigner(secret string, ms int64) *Signer {
	s := NewSigner(Credentials{SecretKey: secret, Host: "https://api.binance.com/"})
	s.now = func() time.Time { return time.UnixMilli(ms) }
	return s
}

func TestBuildRequestSortsKeys(t *testing.T) {
	a := Params{"symbol": "BTCUSDT", "origClientOrderId": "cid-1", "limit": "5"}
	b := Params{}
	b["limit"] = "5"
	b["symbol"] = "BTCUSDT"
	b["origClientOrderId"] = "cid-1"

	want := "limit=5&origClientOrderId=cid-1&symbol=BTCUSDT"
	if got := BuildRequest(a); got != want {
		t.Fatalf("BuildRequest() = %q, want %q", got, want)
	}
	if BuildRequest(a) != BuildRequest(b) {
		t.Fatalf("BuildRequest() depends on insertion order")
	}
	if got := BuildRequest(Params{}); got != "" {
		t.Fatalf("BuildRequest(empty) = %q, want empty", got)
	}
}

func TestBuildSignedRequestAddsRecvWindowAndTimestamp(t *testing.T) {
	s := fixedSigner("s", 1700000000000)
	params := Params{"symbol": "BTCUSDT", "origClientOrderId": "cid-1"}

	got, err := s.BuildSignedRequest(params, 5000)
	if err != nil {
		t.Fatalf("BuildSignedRequest() error = %v", err)
	}
	want := "origClientOrderId=cid-1&recvWindow=5000&symbol=BTCUSDT&timestamp=1700000000000"
	if got != want {
		t.Fatalf("BuildSignedRequest() = %q, want %q", got, want)
	}
	if _, ok := params["timestamp"]; ok {
		t.Fatalf("BuildSignedRequest() mutated the caller's params")
	}

	again, err := s.BuildSignedRequest(Params{"origClientOrderId": "cid-1", "symbol": "BTCUSDT"}, 5000)
	if err != nil {
		t.Fatalf("BuildSignedRequest(again) error = %v", err)
	}
	if again != got {
		t.Fatalf("BuildSignedRequest() not deterministic: %q vs %q", again, got)
	}
}

func TestBuildSignedRequestOmitsZeroRecvWindow(t *testing.T) {
	s := fixedSigner("s", 1700000000000)
	got, err := s.BuildSignedRequest(Params{}, 0)
	if err != nil {
		t.Fatalf("BuildSignedRequest() error = %v", err)
	}
	if got != "timestamp=1700000000000" {
		t.Fatalf("BuildSignedRequest() = %q", got)
	}
}

func TestBuildSignedRequestClockBeforeEpoch(t *testing.T) {
	s := fixedSigner("s", 0)
	s.now = func() time.Time { return time.Unix(-10, 0) }
	_, err := s.BuildSignedRequest(Params{}, 5000)
	if !core.IsKind(err, core.KindClock) {
		t.Fatalf("BuildSignedRequest() error = %v, want clock error", err)
	}
}

func TestSignatureMatchesPublishedVector(t *testing.T) {
	s := NewSigner(Credentials{SecretKey: "NhqPtmdSJYdKjVHjA7PZj4Mge3R5YNiP1e3UZjInClVN65XAbvqqM6A7H5fATj0j"})
	body := "symbol=LTCBTC&side=BUY&type=LIMIT&timeInForce=GTC&quantity=1&price=0.1&recvWindow=5000&timestamp=1499827319559"
	want := "c8db56825ae71d6d79447849e617115f4a920fa2acdcab2b053c4b2838bd6b71"
	if got := s.Signature(body); got != want {
		t.Fatalf("Signature() = %s, want %s", got, want)
	}
	if s.Signature(body) != s.Signature(body) {
		t.Fatalf("Signature() not deterministic")
	}
	if s.Signature(body+"1") == want {
		t.Fatalf("Signature() ignores body changes")
	}
}

func TestSignBuildsURL(t *testing.T) {
	s := fixedSigner("s", 1700000000000)
	body, err := s.BuildSignedRequest(Params{"symbol": "BTCUSDT", "origClientOrderId": "cid-1"}, 5000)
	if err != nil {
		t.Fatalf("BuildSignedRequest() error = %v", err)
	}
	got := s.Sign("/api/v3/order", body)
	want := "https://api.binance.com/api/v3/order?" + body +
		"&signature=c5936cb2432fdccd12df87a93ca572584236dbd10b6206e0923cf5a5404f6fc5"
	if got != want {
		t.Fatalf("Sign() = %q, want %q", got, want)
	}
	if got := s.URL("/api/v3/ticker/price", ""); got != "https://api.binance.com/api/v3/ticker/price" {
		t.Fatalf("URL(empty query) = %q", got)
	}
}

func TestCredentialsStringRedactsSecrets(t *testing.T) {
	creds := Credentials{APIKey: "my-api-key", SecretKey: "my-secret", Host: "https://api.binance.com"}
	for _, out := range []string{creds.String(), fmt.Sprintf("%v", creds), fmt.Sprintf("%+v", creds), fmt.Sprintf("%#v", creds)} {
		if strings.Contains(out, "my-api-key") || strings.Contains(out, "my-secret") {
			t.Fatalf("credentials leaked: %s", out)
		}
	}
}
