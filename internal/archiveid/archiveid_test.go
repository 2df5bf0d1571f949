package archiveid

import "testing"

func TestNewValidates(t *testing.T) {
	if _, err := New(CategoryQt, HostLinux, "desktop", ""); err != nil {
		t.Fatalf("expected valid id, got %v", err)
	}
	if _, err := New("bogus", HostLinux, "desktop", ""); err == nil {
		t.Errorf("expected error for bogus category")
	}
	if _, err := New(CategoryQt, HostLinux, "ios", ""); err == nil {
		t.Errorf("expected error: ios is not a linux target")
	}
}

func TestToURL(t *testing.T) {
	id, err := New(CategoryQt, HostLinux, "desktop", "")
	if err != nil {
		t.Fatal(err)
	}
	want := "online/qtsdkrepository/linux_x64/desktop/"
	if got := id.ToURL(); got != want {
		t.Errorf("ToURL() = %q, want %q", got, want)
	}
}

func TestExtensionForArch(t *testing.T) {
	if got := ExtensionForArch("wasm_32", true); got != "wasm" {
		t.Errorf("wasm_32 extension = %q, want wasm", got)
	}
	if got := ExtensionForArch("android_armv7", false); got != "" {
		t.Errorf("pre-Qt6 android extension = %q, want empty", got)
	}
	if got := ExtensionForArch("android_armv7", true); got != "armv7" {
		t.Errorf("Qt6 android extension = %q, want armv7", got)
	}
}

func TestPossibleExtensionsForArch(t *testing.T) {
	if got := PossibleExtensionsForArch("android_armv7"); len(got) != 2 {
		t.Errorf("expected 2 candidates for android_armv7, got %v", got)
	}
	if got := PossibleExtensionsForArch("gcc_64"); len(got) != 1 {
		t.Errorf("expected 1 candidate for gcc_64, got %v", got)
	}
}
