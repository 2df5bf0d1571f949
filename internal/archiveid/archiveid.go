// Package archiveid implements the category/host/target/extension 4-tuple
// that identifies one subtree of the download.qt.io repository layout,
// along with the architecture-extension rules needed to navigate it.
package archiveid

import (
	"fmt"
	"strings"
)

// Categories recognized in the repository layout.
const (
	CategoryTools = "tools"
	CategoryQt    = "qt"
)

var categories = map[string]bool{CategoryTools: true, CategoryQt: true}

// Hosts recognized in the repository layout.
const (
	HostWindows = "windows"
	HostMac     = "mac"
	HostLinux   = "linux"
)

var hosts = map[string]bool{HostWindows: true, HostMac: true, HostLinux: true}

// TargetsForHost enumerates the valid targets for each host.
var TargetsForHost = map[string][]string{
	HostWindows: {"android", "desktop", "winrt"},
	HostMac:     {"android", "desktop", "ios"},
	HostLinux:   {"android", "desktop"},
}

// AllExtensions enumerates every architecture-extension token that can
// appear after a target, e.g. in "android_armv7".
var AllExtensions = []string{
	"", "wasm", "src_doc_examples", "preview", "wasm_preview",
	"x86", "x86_64", "armv7", "arm64_v8a",
}

// ExtensionsRequiredAndroidQt6 lists the Android ABI extensions that became
// mandatory starting with Qt 6 (pre-Qt 6 Android archives shipped a
// single "android" arch covering all ABIs).
var ExtensionsRequiredAndroidQt6 = []string{"x86", "x86_64", "armv7", "arm64_v8a"}

// ArchiveId identifies one subtree of the repository: a category
// (tools/qt), a build host, a target, and an optional architecture
// extension (e.g. "wasm" or an Android ABI).
type ArchiveId struct {
	Category  string
	Host      string
	Target    string
	Extension string
}

// New validates and constructs an ArchiveId.
func New(category, host, target, extension string) (ArchiveId, error) {
	if !categories[category] {
		return ArchiveId{}, fmt.Errorf("archiveid: invalid category %q", category)
	}
	if !hosts[host] {
		return ArchiveId{}, fmt.Errorf("archiveid: invalid host %q", host)
	}
	valid := false
	for _, t := range TargetsForHost[host] {
		if t == target {
			valid = true
			break
		}
	}
	if !valid {
		return ArchiveId{}, fmt.Errorf("archiveid: invalid target %q for host %q", target, host)
	}
	extOK := false
	for _, e := range AllExtensions {
		if e == extension {
			extOK = true
			break
		}
	}
	if !extOK {
		return ArchiveId{}, fmt.Errorf("archiveid: invalid extension %q", extension)
	}
	return ArchiveId{Category: category, Host: host, Target: target, Extension: extension}, nil
}

// IsQt reports whether this id addresses the Qt SDK tree (as opposed to
// standalone tools).
func (a ArchiveId) IsQt() bool { return a.Category == CategoryQt }

// IsTools reports whether this id addresses the standalone tools tree.
func (a ArchiveId) IsTools() bool { return a.Category == CategoryTools }

// IsNoArch reports whether this id's module names carry no architecture
// suffix, which is true for the src/doc/examples flavor.
func (a ArchiveId) IsNoArch() bool { return a.Extension == "src_doc_examples" }

// hostDir returns the host directory component: "windows_x86" for
// Windows, otherwise "<host>_x64" (e.g. "linux_x64", "mac_x64").
func (a ArchiveId) hostDir() string {
	if a.Host != HostWindows {
		return a.Host + "_x64"
	}
	return a.Host + "_x86"
}

// ToURL builds the path to this archive id's folder, relative to the
// configured base URL, e.g. "online/qtsdkrepository/linux_x64/desktop/".
func (a ArchiveId) ToURL() string {
	return fmt.Sprintf("online/qtsdkrepository/%s/%s/", a.hostDir(), a.Target)
}

// ToFolder builds the archive subfolder name for a given dotted-less Qt
// version, e.g. ToFolder("qt", "515") -> "qt5_515".
func (a ArchiveId) ToFolder(category string, qtVersionNoDots string) string {
	if a.Extension != "" {
		return fmt.Sprintf("%s%s_%s_%s", category, qtVersionNoDots[:1], qtVersionNoDots, a.Extension)
	}
	return fmt.Sprintf("%s%s_%s", category, qtVersionNoDots[:1], qtVersionNoDots)
}

func (a ArchiveId) String() string {
	parts := []string{a.Category, a.Host, a.Target}
	if a.Extension != "" {
		parts = append(parts, a.Extension)
	}
	return strings.Join(parts, "/")
}

// ExtensionForArch returns the single architecture extension folder
// archives for arch live under, given whether the containing Qt version is
// 6.0 or later. Desktop/iOS/wasm architectures outside the Android/Qt6
// cases return "".
func ExtensionForArch(arch string, isVersionGE6 bool) string {
	if arch == "wasm_32" {
		return "wasm"
	}
	if strings.HasPrefix(arch, "android_") {
		abi := strings.TrimPrefix(arch, "android_")
		if isVersionGE6 {
			for _, e := range ExtensionsRequiredAndroidQt6 {
				if e == abi {
					return abi
				}
			}
		}
		return ""
	}
	return ""
}

// PossibleExtensionsForArch returns the one or two extension candidates to
// try for arch, covering the case where the Qt 6 Android extension rule
// differs from the pre-6 rule.
func PossibleExtensionsForArch(arch string) []string {
	lt6 := ExtensionForArch(arch, false)
	ge6 := ExtensionForArch(arch, true)
	if lt6 == ge6 {
		return []string{lt6}
	}
	return []string{lt6, ge6}
}
