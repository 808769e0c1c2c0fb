package jwkskit

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/entrakit/entrakit/config"
)

func rsaJWK(t *testing.T, kid string) (map[string]string, *rsa.PublicKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	pub := &key.PublicKey
	return map[string]string{
		"kty": "RSA",
		"use": "sig",
		"kid": kid,
		"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}, pub
}

func TestParseKeySet(t *testing.T) {
	j1, pub := rsaJWK(t, "k1")
	doc, _ := json.Marshal(map[string]any{"keys": []any{j1}})

	ks, err := ParseKeySet(doc)
	if err != nil {
		t.Fatalf("ParseKeySet: %v", err)
	}
	if len(ks.Keys) != 1 {
		t.Fatalf("got %d keys, want 1", len(ks.Keys))
	}
	k := ks.Keys[0]
	if k.KID != "k1" {
		t.Errorf("KID = %q", k.KID)
	}
	if k.Alg != "RS256" {
		t.Errorf("inferred Alg = %q, want RS256", k.Alg)
	}
	got, ok := k.Key.(*rsa.PublicKey)
	if !ok {
		t.Fatalf("Key is %T", k.Key)
	}
	if got.N.Cmp(pub.N) != 0 {
		t.Error("modulus mismatch")
	}
}

func TestParseKeySetSkipsUnusableKeys(t *testing.T) {
	sig, _ := rsaJWK(t, "sig-key")
	enc, _ := rsaJWK(t, "enc-key")
	enc["use"] = "enc"
	noKid, _ := rsaJWK(t, "x")
	delete(noKid, "kid")

	doc, _ := json.Marshal(map[string]any{"keys": []any{sig, enc, noKid}})
	ks, err := ParseKeySet(doc)
	if err != nil {
		t.Fatalf("ParseKeySet: %v", err)
	}
	if len(ks.Keys) != 1 || ks.Keys[0].KID != "sig-key" {
		t.Errorf("keys = %+v, want only sig-key", ks.Keys)
	}
}

func TestParseKeySetMalformed(t *testing.T) {
	if _, err := ParseKeySet([]byte("not json")); !errors.Is(err, ErrMalformedKeySet) {
		t.Errorf("want ErrMalformedKeySet, got %v", err)
	}
}

func testConfig(t *testing.T, host string) *config.Config {
	t.Helper()
	cfg, err := config.New(config.Config{TenantID: "t1", ClientID: "c1", ProviderHost: host})
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func TestHTTPSourceFetch(t *testing.T) {
	j1, _ := rsaJWK(t, "k1")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/t1/discovery/v2.0/keys" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": []any{j1}})
	}))
	defer srv.Close()

	src := NewHTTPSource(testConfig(t, srv.URL))
	ks, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(ks.Keys) != 1 || ks.Keys[0].KID != "k1" {
		t.Errorf("keys = %+v", ks.Keys)
	}
}

func TestHTTPSourceFetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := NewHTTPSource(testConfig(t, srv.URL))
	if _, err := src.Fetch(context.Background()); !errors.Is(err, ErrFetch) {
		t.Errorf("non-2xx: want ErrFetch, got %v", err)
	}

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{broken"))
	}))
	defer bad.Close()

	src = NewHTTPSource(testConfig(t, bad.URL))
	if _, err := src.Fetch(context.Background()); !errors.Is(err, ErrMalformedKeySet) {
		t.Errorf("bad body: want ErrMalformedKeySet, got %v", err)
	}

	down := testConfig(t, "http://127.0.0.1:1")
	src = NewHTTPSource(down)
	if _, err := src.Fetch(context.Background()); !errors.Is(err, ErrFetch) {
		t.Errorf("transport failure: want ErrFetch, got %v", err)
	}
}
