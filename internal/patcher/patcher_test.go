package patcher

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPatchBinFilePreservesSlotLength(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "qmake")
	oldPrefix := "/home/qt/work/install"
	data := append([]byte("junk"), []byte("qt_prfxpath="+oldPrefix+"\x00\x00\x00\x00trailer")...)
	if err := os.WriteFile(path, data, 0755); err != nil {
		t.Fatal(err)
	}
	before, _ := os.Stat(path)

	newPrefix := "/opt/Qt/6.2.0/gcc_64"
	if err := PatchBinFile(path, []byte("qt_prfxpath="), newPrefix); err != nil {
		t.Fatal(err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != len(data) {
		t.Fatalf("file length changed: got %d, want %d", len(after), len(data))
	}
	if !strings.Contains(string(after), newPrefix) {
		t.Errorf("patched file does not contain new prefix: %q", after)
	}
	if !strings.HasSuffix(string(after), "trailer") {
		t.Errorf("trailing bytes after the patched slot were corrupted: %q", after)
	}
	st, _ := os.Stat(path)
	if st.Mode() != before.Mode() {
		t.Errorf("file mode changed: got %v, want %v", st.Mode(), before.Mode())
	}
}

func TestPatchBinFileRejectsOverlongPrefix(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "qmake")
	os.WriteFile(path, []byte("qt_prfxpath=/x\x00"), 0755)
	if err := PatchBinFile(path, []byte("qt_prfxpath="), strings.Repeat("a", 300)); err == nil {
		t.Fatal("expected error for overlong prefix")
	}
}

func TestPatchTextFileIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "libfoo.la")
	os.WriteFile(path, []byte("libdir='/home/qt/work/install/lib'\n"), 0644)

	if err := PatchTextFile(path, "libdir='/home/qt/work/install/lib'", "libdir='/opt/Qt/lib'", false); err != nil {
		t.Fatal(err)
	}
	first, _ := os.ReadFile(path)

	if err := PatchTextFile(path, "libdir='/home/qt/work/install/lib'", "libdir='/opt/Qt/lib'", false); err != nil {
		t.Fatal(err)
	}
	second, _ := os.ReadFile(path)

	if string(first) != string(second) {
		t.Errorf("patch is not idempotent: first=%q second=%q", first, second)
	}
}

func TestSetLicenseRewritesEdition(t *testing.T) {
	dir := t.TempDir()
	mkspecs := filepath.Join(dir, "mkspecs")
	os.MkdirAll(mkspecs, 0755)
	path := filepath.Join(mkspecs, "qconfig.pri")
	os.WriteFile(path, []byte("QT_EDITION = Enterprise\nQT_LICHECK = licheck64\n"), 0644)

	if err := SetLicense(dir); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(path)
	if strings.Contains(string(got), "Enterprise") {
		t.Errorf("expected Enterprise edition to be rewritten, got %q", got)
	}
	if !strings.Contains(string(got), "QT_EDITION = OpenSource") {
		t.Errorf("expected OpenSource edition, got %q", got)
	}
}
