package httpclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/goaqt/aqt/internal/config"
)

func TestDownloadToFileVerifiesChecksum(t *testing.T) {
	const payload = "fake archive contents"
	sum := sha256.Sum256([]byte(payload))
	hash := hex.EncodeToString(sum[:])

	mux := http.NewServeMux()
	mux.HandleFunc("/archive.7z", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	})
	mux.HandleFunc("/archive.7z.sha256", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(hash + "  archive.7z\n"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	settings := config.Defaults()
	settings.BaseURL = srv.URL
	settings.MaxRetriesForHash = 1
	settings.MaxRetriesOnChecksumError = 1
	c := New(settings)

	dir := t.TempDir()
	dest := filepath.Join(dir, "archive.7z")
	if err := c.DownloadToFile(context.Background(), "archive.7z", dest); err != nil {
		t.Fatalf("DownloadToFile: %v", err)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != payload {
		t.Errorf("downloaded content = %q, want %q", got, payload)
	}
}

func TestDownloadToFileRejectsBadChecksum(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/archive.7z", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("corrupted"))
	})
	mux.HandleFunc("/archive.7z.sha256", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("0000000000000000000000000000000000000000000000000000000000000000  archive.7z\n"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	settings := config.Defaults()
	settings.BaseURL = srv.URL
	settings.MaxRetriesForHash = 1
	settings.MaxRetriesOnChecksumError = 1
	c := New(settings)

	dest := filepath.Join(t.TempDir(), "archive.7z")
	if err := c.DownloadToFile(context.Background(), "archive.7z", dest); err == nil {
		t.Fatal("expected checksum error, got nil")
	}
}

func TestGetTextFetchesBaseURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/Updates.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<Updates/>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	settings := config.Defaults()
	settings.BaseURL = srv.URL
	c := New(settings)
	text, err := c.GetText(context.Background(), "Updates.xml")
	if err != nil {
		t.Fatal(err)
	}
	if text != "<Updates/>" {
		t.Errorf("GetText = %q", text)
	}
}

func TestAltLinkSkipsBlacklistedMirror(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/archive.7z.meta4", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<metalink xmlns="urn:ietf:params:xml:ns:metalink">
  <file name="archive.7z">
    <url priority="1">http://blacklisted.example/archive.7z</url>
    <url priority="2">http://good-mirror.example/archive.7z</url>
  </file>
</metalink>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	settings := config.Defaults()
	settings.BaseURL = srv.URL
	settings.Blacklist = []string{"http://blacklisted.example"}
	c := New(settings)

	got, err := c.AltLink(context.Background(), "archive.7z")
	if err != nil {
		t.Fatal(err)
	}
	if got != "http://good-mirror.example/archive.7z" {
		t.Errorf("AltLink = %q, want the non-blacklisted mirror", got)
	}
}

func TestAltLinkFallsBackWithoutMetalink(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	settings := config.Defaults()
	settings.BaseURL = srv.URL
	c := New(settings)

	got, err := c.AltLink(context.Background(), "archive.7z")
	if err != nil {
		t.Fatal(err)
	}
	if got != srv.URL+"/archive.7z" {
		t.Errorf("AltLink = %q, want fallback to the primary URL", got)
	}
}
