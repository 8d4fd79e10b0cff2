package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestSend_SignsAndPosts(t *testing.T) {
	const secret = "test-secret"
	var gotAuth string
	var gotBody Request

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"action":"task"}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{URL: srv.URL, Secret: secret, Logger: testLogger()})
	resp, err := c.Send(context.Background(), NewRequest("salut", "42", "paul", nil))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if resp.Status != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.Status)
	}
	if string(resp.Body) != `{"action":"task"}` {
		t.Errorf("unexpected body: %s", resp.Body)
	}

	if gotBody.Message != "salut" {
		t.Errorf("expected message salut, got %q", gotBody.Message)
	}
	if gotBody.User.ID == nil || *gotBody.User.ID != "42" {
		t.Error("expected user id 42")
	}
	if gotBody.User.Username == nil || *gotBody.User.Username != "paul" {
		t.Error("expected username paul")
	}

	// The bearer token must verify against the shared secret and expire
	// roughly an hour out.
	if !strings.HasPrefix(gotAuth, "Bearer ") {
		t.Fatalf("expected bearer auth, got %q", gotAuth)
	}
	tok, err := jwt.Parse(strings.TrimPrefix(gotAuth, "Bearer "), func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid {
		t.Fatalf("token does not verify: %v", err)
	}
	claims := tok.Claims.(jwt.MapClaims)
	if claims["message"] != "salut" {
		t.Errorf("expected message claim, got %v", claims["message"])
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		t.Fatalf("expiry claim: %v", err)
	}
	until := time.Until(exp.Time)
	if until < 55*time.Minute || until > 65*time.Minute {
		t.Errorf("expiry should be ~1h out, got %s", until)
	}
}

func TestSend_NullIdentity(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{URL: srv.URL, Secret: "s", Logger: testLogger()})
	if _, err := c.Send(context.Background(), NewRequest("m", "", "", nil)); err != nil {
		t.Fatal(err)
	}

	user, ok := raw["user"].(map[string]any)
	if !ok {
		t.Fatalf("missing user object: %v", raw)
	}
	if user["id"] != nil || user["username"] != nil {
		t.Errorf("absent identity must serialize as null, got %v", user)
	}
	if _, hasFile := raw["file"]; hasFile {
		t.Error("nil file must be omitted")
	}
}

func TestSend_FilePayload(t *testing.T) {
	var gotBody Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	file := &FilePayload{
		Filename:         "notes.txt",
		MimeType:         "text/plain",
		Size:             12,
		Data:             "aGVsbG8=",
		OriginalFilename: "notes.md",
		OriginalMimeType: "text/markdown",
		Converted:        true,
	}
	c := NewClient(ClientConfig{URL: srv.URL, Secret: "s", Logger: testLogger()})
	if _, err := c.Send(context.Background(), NewRequest("m", "1", "u", file)); err != nil {
		t.Fatal(err)
	}
	if gotBody.File == nil || gotBody.File.OriginalFilename != "notes.md" || !gotBody.File.Converted {
		t.Errorf("file payload lost conversion metadata: %+v", gotBody.File)
	}
}

func TestSend_TransportFailure(t *testing.T) {
	// A closed server produces a connection error, not an HTTP status.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(ClientConfig{URL: srv.URL, Secret: "s", Logger: testLogger()})
	resp, err := c.Send(context.Background(), NewRequest("m", "", "", nil))
	if err == nil {
		t.Fatal("expected transport error")
	}
	if resp != nil {
		t.Error("no response expected on transport failure")
	}
}

func TestSend_Non200PassedThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{URL: srv.URL, Secret: "s", Logger: testLogger()})
	resp, err := c.Send(context.Background(), NewRequest("m", "", "", nil))
	if err != nil {
		t.Fatalf("non-200 is not a transport failure: %v", err)
	}
	if resp.Status != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", resp.Status)
	}
	if string(resp.Body) != "upstream down" {
		t.Errorf("body should be preserved for logging, got %q", resp.Body)
	}
}
