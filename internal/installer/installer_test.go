package installer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goaqt/aqt/internal/config"
	"github.com/goaqt/aqt/internal/httpclient"
	"github.com/goaqt/aqt/internal/resolver"
)

func TestChooseArchiveDestDefaultsToTempDir(t *testing.T) {
	settings := config.Defaults()
	dir, cleanup, err := ChooseArchiveDest(Options{}, settings)
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()
	if dir == "" {
		t.Fatal("expected a non-empty temp directory")
	}
}

func TestChooseArchiveDestExplicit(t *testing.T) {
	settings := config.Defaults()
	dest := t.TempDir()
	dir, cleanup, err := ChooseArchiveDest(Options{ArchiveDest: dest}, settings)
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()
	if dir != dest {
		t.Errorf("dir = %q, want %q", dir, dest)
	}
}

func TestInstallRejectsChecksumMismatch(t *testing.T) {
	const payload = "not really a 7z file"
	mux := http.NewServeMux()
	mux.HandleFunc("/qtbase.7z", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	})
	mux.HandleFunc("/qtbase.7z.sha256", func(w http.ResponseWriter, r *http.Request) {
		// deliberately not sha256("not really a 7z file")
		w.Write([]byte("1f1a6e7b6a6a9a6b3f2c0f6f4e7d2a1b3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f  qtbase.7z\n"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	settings := config.Defaults()
	settings.BaseURL = srv.URL
	settings.MaxRetriesForHash = 1
	settings.MaxRetriesOnChecksumError = 1
	settings.Concurrency = 2
	client := httpclient.New(settings)

	packages := []resolver.QtPackage{{
		Name:        "qt.qt6.620.gcc_64",
		BaseURL:     srv.URL,
		ArchivePath: "qtbase.7z",
		Archive:     "qtbase.7z",
	}}

	opts := Options{BaseDir: t.TempDir(), ExtractorCmd: "true"}
	// The checksum is intentionally wrong above; Install is expected to
	// surface a checksum error rather than silently accept a corrupt
	// archive.
	if err := Install(context.Background(), client, settings, packages, opts, nil); err == nil {
		t.Fatal("expected checksum mismatch error")
	}
}
