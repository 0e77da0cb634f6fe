package token

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/keerthanachowdary21/Live-Video-Calls/pkg/auth"
)

func TestHTTPProvider(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantToken     string
		wantTransient bool
		wantDetail    string
	}{
		{name: "ok", status: 200, body: `{"token":"abc"}`, wantToken: "abc"},
		{name: "rejected", status: 400, body: `{"message":"invalid room"}`, wantDetail: "invalid room"},
		{name: "unavailable", status: 503, body: "down", wantTransient: true, wantDetail: "down"},
		{name: "rate limited", status: 429, body: "", wantTransient: true},
		{name: "malformed", status: 200, body: `<html>`, wantDetail: "malformed"},
		{name: "empty token", status: 200, body: `{"token":""}`, wantDetail: "malformed"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got Request
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
					t.Errorf("method=%s content-type=%s", r.Method, r.Header.Get("Content-Type"))
				}
				_ = json.NewDecoder(r.Body).Decode(&got)
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			p := NewHTTPProvider(srv.URL, StaticKey("k"), srv.Client())
			tok, err := p.IssueToken(context.Background(), Request{RoomID: "r1", Role: "participant", Exp: 42})
			if got.RoomID != "r1" || got.Role != "participant" || got.Exp != 42 {
				t.Fatalf("provider saw %+v", got)
			}
			if tc.wantToken != "" {
				if err != nil || tok != tc.wantToken {
					t.Fatalf("tok=%q err=%v", tok, err)
				}
				return
			}
			if tok != "" {
				t.Fatalf("token returned on failure: %q", tok)
			}
			var pe *ProviderError
			if !errors.As(err, &pe) || !errors.Is(err, ErrTokenIssuanceFailed) {
				t.Fatalf("err=%v", err)
			}
			if pe.Status != tc.status {
				t.Fatalf("status=%d", pe.Status)
			}
			if errors.Is(err, ErrProviderUnavailable) != tc.wantTransient {
				t.Fatalf("transient=%v, want %v", errors.Is(err, ErrProviderUnavailable), tc.wantTransient)
			}
			if !strings.Contains(err.Error(), tc.wantDetail) {
				t.Fatalf("error %q lacks %q", err, tc.wantDetail)
			}
		})
	}
}

func TestHTTPProviderNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPProvider(url, StaticKey("k"), nil).IssueToken(context.Background(), Request{RoomID: "r1"})
	if !errors.Is(err, ErrProviderUnavailable) || !errors.Is(err, ErrTokenIssuanceFailed) {
		t.Fatalf("err=%v", err)
	}
}

func TestHTTPProviderMissingCredential(t *testing.T) {
	_, err := NewHTTPProvider("http://127.0.0.1:1", StaticKey(""), nil).IssueToken(context.Background(), Request{})
	if !errors.Is(err, ErrTokenIssuanceFailed) || errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("err=%v", err)
	}
}

func TestManagementKeyIsMintedAndCached(t *testing.T) {
	signer := auth.New("access", "secret")
	mk := NewManagementKey(signer, time.Hour)
	now := time.Now()
	mk.now = func() time.Time { return now }

	first, err := mk.Bearer()
	if err != nil {
		t.Fatal(err)
	}
	if key, err := signer.Verify(first); err != nil || key != "access" {
		t.Fatalf("verify: key=%q err=%v", key, err)
	}
	second, _ := mk.Bearer()
	if second != first {
		t.Fatal("token should be reused before renewal")
	}

	now = now.Add(55 * time.Minute)
	third, _ := mk.Bearer()
	if third == first {
		t.Fatal("token should be renewed near expiry")
	}
}

func TestProviderAcceptsManagementKey(t *testing.T) {
	signer := auth.New("access", "secret")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if _, err := signer.Verify(tok); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"token":"t"}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, NewManagementKey(signer, time.Hour), srv.Client())
	if tok, err := p.IssueToken(context.Background(), Request{RoomID: "r1"}); err != nil || tok != "t" {
		t.Fatalf("tok=%q err=%v", tok, err)
	}
}
