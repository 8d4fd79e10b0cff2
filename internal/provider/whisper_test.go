package provider

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTranscribe(t *testing.T) {
	var gotAuth, gotModel, gotLanguage, gotFilename string
	var gotAudio []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotModel = r.FormValue("model")
		gotLanguage = r.FormValue("language")

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		gotFilename = header.Filename
		gotAudio, _ = io.ReadAll(file)

		w.Write([]byte(`{"text":"fais une note","language":"fr","duration":2.4}`))
	}))
	defer srv.Close()

	tr := NewWhisperTranscriber(WhisperConfig{
		APIBase: srv.URL,
		APIKey:  "key",
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	text, err := tr.Transcribe(context.Background(), []byte("opus-bytes"), "voice.ogg")
	if err != nil {
		t.Fatal(err)
	}
	if text != "fais une note" {
		t.Errorf("unexpected transcript %q", text)
	}
	if gotAuth != "Bearer key" {
		t.Errorf("unexpected auth %q", gotAuth)
	}
	if gotModel != "whisper-large-v3" {
		t.Errorf("unexpected model %q", gotModel)
	}
	if gotLanguage != "fr" {
		t.Errorf("default language should be fr, got %q", gotLanguage)
	}
	if gotFilename != "voice.ogg" || string(gotAudio) != "opus-bytes" {
		t.Errorf("audio upload mangled: %q %q", gotFilename, gotAudio)
	}
}

func TestTranscribeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("rate limited"))
	}))
	defer srv.Close()

	tr := NewWhisperTranscriber(WhisperConfig{
		APIBase: srv.URL,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	_, err := tr.Transcribe(context.Background(), []byte("x"), "voice.ogg")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "429") || !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("error should carry status and body: %v", err)
	}
}
