package catalog

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<Updates>
  <PackageUpdate>
    <Name>qt.qt6.620.gcc_64</Name>
    <DisplayName>Qt 6.2.0 Desktop gcc 64-bit</DisplayName>
    <Description>Qt 6.2.0 for Desktop</Description>
    <Version>6.2.0-0-202109101246</Version>
    <ReleaseDate>2021-09-10</ReleaseDate>
    <Dependencies>qt.tools.qtcreator</Dependencies>
    <DownloadableArchives>qtbase.7z,qtdeclarative.7z</DownloadableArchives>
  </PackageUpdate>
  <PackageUpdate>
    <Name>qt.qt6.620.addons.qtcharts.gcc_64</Name>
    <DisplayName>Qt Charts</DisplayName>
    <Version>6.2.0-0-202109101246</Version>
    <DownloadableArchives>qtcharts.7z</DownloadableArchives>
  </PackageUpdate>
  <PackageUpdate>
    <Name>qt.tools.qtcreator</Name>
    <DisplayName>Qt Creator</DisplayName>
    <Version>6.2.0-0-202109101246</Version>
    <DownloadableArchives>qtcreator.7z</DownloadableArchives>
  </PackageUpdate>
</Updates>`

func TestParse(t *testing.T) {
	u, err := Parse(sampleXML)
	if err != nil {
		t.Fatal(err)
	}
	if len(u.PackageUpdates) != 3 {
		t.Fatalf("got %d package updates, want 3", len(u.PackageUpdates))
	}
	pu, ok := u.Get("qt.qt6.620.addons.qtcharts.gcc_64")
	if !ok {
		t.Fatal("expected to find qtcharts package")
	}
	if pu.Arch() != "gcc_64" {
		t.Errorf("Arch() = %q, want gcc_64", pu.Arch())
	}
	if diff := cmp.Diff([]string{"qtcharts.7z"}, pu.DownloadableArchives); diff != "" {
		t.Errorf("DownloadableArchives mismatch (-want +got):\n%s", diff)
	}
}

func TestGetDepends(t *testing.T) {
	u, err := Parse(sampleXML)
	if err != nil {
		t.Fatal(err)
	}
	deps := u.GetDepends("qt.qt6.620.gcc_64")
	if diff := cmp.Diff([]string{"qt.tools.qtcreator"}, deps); diff != "" {
		t.Errorf("GetDepends mismatch (-want +got):\n%s", diff)
	}
}

func TestModuleToPackage(t *testing.T) {
	m := NewModuleToPackage()
	m.Add("qtcharts", "qt.qt6.620.addons.qtcharts.gcc_64", "qt.qt6.620.qtcharts.gcc_64")
	if !m.HasPackage("qt.qt6.620.addons.qtcharts.gcc_64") {
		t.Fatal("expected candidate package to be tracked")
	}
	if err := m.RemoveModuleForPackage("qt.qt6.620.addons.qtcharts.gcc_64"); err != nil {
		t.Fatal(err)
	}
	if m.Len() != 0 {
		t.Errorf("expected 0 unresolved modules, got %d", m.Len())
	}
	if err := m.RemoveModuleForPackage("nonexistent"); err == nil {
		t.Error("expected error removing an untracked package")
	}
}
