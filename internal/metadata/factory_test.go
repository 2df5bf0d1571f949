package metadata

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

const listingHTML = `<html><body><table>
<tr><td><a href="../">Parent Directory</a></td></tr>
<tr><td><a href="qt5_5150/">qt5_5150/</a></td></tr>
<tr><td><a href="qt6_620/">qt6_620/</a></td></tr>
</table></body></html>`

const updatesXML = `<Updates>
<PackageUpdate>
  <Name>qt.qt6.620.gcc_64</Name>
  <Version>6.2.0-0-202109101246</Version>
  <DownloadableArchives>qtbase.7z</DownloadableArchives>
</PackageUpdate>
<PackageUpdate>
  <Name>qt.qt6.620.addons.qtcharts.gcc_64</Name>
  <Version>6.2.0-0-202109101246</Version>
  <DownloadableArchives>qtcharts.7z</DownloadableArchives>
</PackageUpdate>
</Updates>`

func newTestFactory(t *testing.T, handler http.HandlerFunc) *Factory {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	settings := config.Defaults()
	settings.BaseURL = srv.URL
	client := httpclient.New(settings)
	id, err := archiveid.New(archiveid.CategoryQt, archiveid.HostLinux, "desktop", "")
	if err != nil {
		t.Fatal(err)
	}
	return NewFactory(client, settings, id)
}

func TestFetchVersions(t *testing.T) {
	f := newTestFactory(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listingHTML))
	})
	spec, _ := qtversion.ParseSpec(">=6")
	vs, err := f.FetchVersions(context.Background(), spec)
	if err != nil {
		t.Fatal(err)
	}
	latest, ok := vs.Latest()
	if !ok || latest.String() != "6.2.0" {
		t.Errorf("Latest() = %v, %v, want 6.2.0, true", latest, ok)
	}
}

func TestFetchModulesAndArches(t *testing.T) {
	f := newTestFactory(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(updatesXML))
	})
	v := qtversion.Version{Major: 6, Minor: 2, Patch: 0}
	arches, err := f.FetchArches(context.Background(), v)
	if err != nil {
		t.Fatal(err)
	}
	if len(arches) != 1 || arches[0] != "gcc_64" {
		t.Errorf("FetchArches = %v", arches)
	}
	modules, err := f.FetchModules(context.Background(), v, "gcc_64")
	if err != nil {
		t.Fatal(err)
	}
	if len(modules) != 1 || modules[0] != "qtcharts" {
		t.Errorf("FetchModules = %v", modules)
	}
}

func TestValidateExtension(t *testing.T) {
	v6 := qtversion.Version{Major: 6, Minor: 2, Patch: 0}
	if err := ValidateExtension(v6, "", "android"); err == nil {
		t.Error("expected error: Qt6 android requires extension")
	}
	if err := ValidateExtension(v6, "armv7", "android"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateExtension(v6, "armv7", "desktop"); err == nil {
		t.Error("expected error: extension not valid for desktop")
	}
}
