package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goaqt/aqt/internal/archiveid"
	"github.com/goaqt/aqt/internal/config"
	"github.com/goaqt/aqt/internal/httpclient"
	"github.com/goaqt/aqt/internal/qtversion"
)

const resolverUpdatesXML = `<Updates>
<PackageUpdate>
  <Name>qt.qt6.620.gcc_64</Name>
  <Version>6.2.0-0-202109101246</Version>
  <DownloadableArchives>qtbase-Linux-X86_64.7z,icu-Linux-X86_64.7z</DownloadableArchives>
</PackageUpdate>
<PackageUpdate>
  <Name>qt.qt6.620.addons.qtcharts.gcc_64</Name>
  <Version>6.2.0-0-202109101246</Version>
  <DownloadableArchives>qtcharts.7z</DownloadableArchives>
</PackageUpdate>
</Updates>`

func newResolver(t *testing.T) (*Resolver, archiveid.ArchiveId) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(resolverUpdatesXML))
	}))
	t.Cleanup(srv.Close)
	settings := config.Defaults()
	settings.BaseURL = srv.URL
	client := httpclient.New(settings)
	id, err := archiveid.New(archiveid.CategoryQt, archiveid.HostLinux, "desktop", "")
	if err != nil {
		t.Fatal(err)
	}
	return New(client, settings), id
}

func TestResolveQtWithModules(t *testing.T) {
	r, id := newResolver(t)
	v := qtversion.Version{Major: 6, Minor: 2, Patch: 0}
	packages, unresolved, err := r.ResolveQt(context.Background(), id, v, "gcc_64", []string{"qtcharts"}, nil, false, true)
	if err != nil {
		t.Fatalf("ResolveQt: %v, unresolved=%v", err, unresolved)
	}
	if len(packages) != 3 {
		t.Fatalf("got %d packages, want 3 (qtbase, icu, qtcharts)", len(packages))
	}
}

func TestResolveQtArchivesFilter(t *testing.T) {
	r, id := newResolver(t)
	v := qtversion.Version{Major: 6, Minor: 2, Patch: 0}
	packages, _, err := r.ResolveQt(context.Background(), id, v, "gcc_64", nil, []string{"qtbase"}, false, true)
	if err != nil {
		t.Fatalf("ResolveQt: %v", err)
	}
	if len(packages) != 1 || packages[0].Archive != "qtbase-Linux-X86_64.7z" {
		t.Fatalf("got %v, want only qtbase-Linux-X86_64.7z (icu-Linux-X86_64.7z filtered out of the base package)", packages)
	}
}

func TestResolveQtUnresolvedModule(t *testing.T) {
	r, id := newResolver(t)
	v := qtversion.Version{Major: 6, Minor: 2, Patch: 0}
	_, unresolved, err := r.ResolveQt(context.Background(), id, v, "gcc_64", []string{"doesnotexist"}, nil, false, true)
	if err == nil {
		t.Fatal("expected NoPackageFound error")
	}
	if len(unresolved) != 1 || unresolved[0] != "doesnotexist" {
		t.Errorf("unresolved = %v, want [doesnotexist]", unresolved)
	}
}
