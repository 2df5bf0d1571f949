// Package metadata answers "what is available" questions against a
// repository: which Qt versions exist, which modules/architectures/tools a
// version offers, by combining the HTML directory listing of a host/target
// folder with the Updates.xml catalog inside each version's subfolder.
package metadata

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goaqt/aqt/internal/aqterrors"
	"github.com/goaqt/aqt/internal/archiveid"
	"github.com/goaqt/aqt/internal/catalog"
	"github.com/goaqt/aqt/internal/config"
	"github.com/goaqt/aqt/internal/httpclient"
	"github.com/goaqt/aqt/internal/qtversion"
)

// Factory answers metadata questions for one ArchiveId (one host/target/
// category combination), the way MetadataFactory is constructed once per
// list-qt/list-tool invocation in the original.
type Factory struct {
	client   *httpclient.Client
	settings *config.Settings
	id       archiveid.ArchiveId
}

// NewFactory constructs a Factory for the given archive id.
func NewFactory(client *httpclient.Client, settings *config.Settings, id archiveid.ArchiveId) *Factory {
	return &Factory{client: client, settings: settings, id: id}
}

func (f *Factory) listDir(ctx context.Context) ([]string, error) {
	page, err := f.client.GetText(ctx, f.id.ToURL())
	if err != nil {
		return nil, aqterrors.NewArchiveListError("listing "+f.id.ToURL(), err)
	}
	return iterateFolders(page, f.id.Category)
}

// FetchVersions lists every released Qt version under this Factory's
// archive id that matches spec, grouped by minor release.
func (f *Factory) FetchVersions(ctx context.Context, spec qtversion.Spec) (Versions, error) {
	folders, err := f.listDir(ctx)
	if err != nil {
		return Versions{}, err
	}
	ves := getVersionsExtensions(folders, f.id.Category)
	seen := map[string]bool{}
	var out []qtversion.Version
	for _, ve := range ves {
		if f.id.Extension != "" && ve.Extension != f.id.Extension {
			continue
		}
		v, err := digitsToVersion(ve.Digits)
		if err != nil {
			continue
		}
		if !spec.Match(v) {
			continue
		}
		key := v.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	if len(out) == 0 {
		return Versions{}, aqterrors.NewEmptyMetadata(fmt.Sprintf("no versions found matching %q under %s", spec, f.id))
	}
	return NewVersions(out), nil
}

// digitsToVersion turns a folder's digit run ("5150", "620") into a
// Version, matching get_semantic_version's digit-count-driven split.
func digitsToVersion(digits string) (qtversion.Version, error) {
	for _, r := range digits {
		if r < '0' || r > '9' {
			return qtversion.Version{}, fmt.Errorf("metadata: %q is not numeric", digits)
		}
	}
	switch {
	case len(digits) >= 4:
		major, _ := strconv.Atoi(digits[:1])
		minor, _ := strconv.Atoi(digits[1:3])
		patch, _ := strconv.Atoi(digits[3:])
		return qtversion.Version{Major: major, Minor: minor, Patch: patch}, nil
	case len(digits) == 3:
		major, _ := strconv.Atoi(digits[:1])
		minor, _ := strconv.Atoi(digits[1:2])
		patch, _ := strconv.Atoi(digits[2:])
		return qtversion.Version{Major: major, Minor: minor, Patch: patch}, nil
	case len(digits) == 2:
		major, _ := strconv.Atoi(digits[:1])
		minor, _ := strconv.Atoi(digits[1:])
		return qtversion.Version{Major: major, Minor: minor}, nil
	default:
		return qtversion.Version{}, fmt.Errorf("metadata: %q too short to be a version", digits)
	}
}

// FetchLatestVersion returns the newest version matching spec.
func (f *Factory) FetchLatestVersion(ctx context.Context, spec qtversion.Spec) (qtversion.Version, error) {
	vs, err := f.FetchVersions(ctx, spec)
	if err != nil {
		return qtversion.Version{}, err
	}
	latest, ok := vs.Latest()
	if !ok {
		return qtversion.Version{}, aqterrors.NewEmptyMetadata("no versions available")
	}
	return latest, nil
}

func (f *Factory) verStr(v qtversion.Version) string {
	return v.NoDots()
}

func (f *Factory) versionFolder(v qtversion.Version) string {
	return f.id.ToFolder(f.id.Category, f.verStr(v))
}

func (f *Factory) catalogFor(ctx context.Context, v qtversion.Version) (*catalog.Updates, error) {
	folderURL := f.id.ToURL() + f.versionFolder(v) + "/Updates.xml"
	text, err := f.client.GetText(ctx, folderURL)
	if err != nil {
		return nil, aqterrors.NewArchiveListError("fetching "+folderURL, err)
	}
	return catalog.Parse(text)
}

// FetchArches lists every architecture offered for version, derived from
// the arch suffix of every base package in the catalog, i.e. every package
// name whose second-to-last dot component is the version's digit string
// (e.g. "qt.qt6.620.gcc_64" -> "gcc_64").
func (f *Factory) FetchArches(ctx context.Context, v qtversion.Version) ([]string, error) {
	u, err := f.catalogFor(ctx, v)
	if err != nil {
		return nil, err
	}
	verStr := f.verStr(v)
	seen := map[string]bool{}
	var out []string
	for _, pu := range u.PackageUpdates {
		parts := strings.Split(pu.Name, ".")
		if len(parts) < 2 || parts[len(parts)-2] != verStr {
			continue
		}
		a := pu.Arch()
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil, aqterrors.NewEmptyMetadata(fmt.Sprintf("no architectures found for Qt %s", v))
	}
	return out, nil
}

// FetchModules lists every add-on module name offered for version/arch,
// with the "qt.qt<major>.<ver>.addons." / "qt.<ver>." package-name
// boilerplate stripped, matching fetch_modules' regex-stripping behavior.
func (f *Factory) FetchModules(ctx context.Context, v qtversion.Version, arch string) ([]string, error) {
	u, err := f.catalogFor(ctx, v)
	if err != nil {
		return nil, err
	}
	verStr := f.verStr(v)
	prefixes := []string{
		fmt.Sprintf("qt.qt%d.%s.addons.", v.Major, verStr),
		fmt.Sprintf("qt.qt%d.%s.", v.Major, verStr),
		fmt.Sprintf("qt.%s.addons.", verStr),
		fmt.Sprintf("qt.%s.", verStr),
	}
	var out []string
	for _, pu := range u.PackageUpdates {
		if pu.IsBasePackage(v.Major, verStr, arch) {
			continue
		}
		if !strings.HasSuffix(pu.Name, "."+arch) {
			continue
		}
		name := pu.Name
		for _, p := range prefixes {
			if strings.HasPrefix(name, p) {
				name = strings.TrimPrefix(name, p)
				break
			}
		}
		name = strings.TrimSuffix(name, "."+arch)
		if name == "" || name == pu.Name {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// FetchExtensions lists the architecture-extension folders available for
// version (e.g. "wasm", Android ABI names).
func (f *Factory) FetchExtensions(ctx context.Context, v qtversion.Version) ([]string, error) {
	folders, err := f.listDir(ctx)
	if err != nil {
		return nil, err
	}
	ves := getVersionsExtensions(folders, f.id.Category)
	want := f.verStr(v)
	seen := map[string]bool{}
	var out []string
	for _, ve := range ves {
		if ve.Digits != want || ve.Extension == "" {
			continue
		}
		if !seen[ve.Extension] {
			seen[ve.Extension] = true
			out = append(out, ve.Extension)
		}
	}
	sort.Strings(out)
	return out, nil
}

// FetchTools lists the standalone tool names available under this
// Factory's (tools) archive id.
func (f *Factory) FetchTools(ctx context.Context) ([]string, error) {
	page, err := f.client.GetText(ctx, f.id.ToURL())
	if err != nil {
		return nil, aqterrors.NewArchiveListError("listing "+f.id.ToURL(), err)
	}
	folders, err := iterateFolders(page, "tools_")
	if err != nil {
		return nil, err
	}
	sort.Strings(folders)
	return folders, nil
}

// FetchToolModules lists the variants of one standalone tool, by parsing
// the Updates.xml inside that tool's own subfolder.
func (f *Factory) FetchToolModules(ctx context.Context, toolName string) ([]ToolVariant, error) {
	folderURL := f.id.ToURL() + toolName + "/Updates.xml"
	text, err := f.client.GetText(ctx, folderURL)
	if err != nil {
		return nil, aqterrors.NewArchiveListError("fetching "+folderURL, err)
	}
	u, err := catalog.Parse(text)
	if err != nil {
		return nil, err
	}
	var out []ToolVariant
	for _, pu := range u.PackageUpdates {
		if len(pu.DownloadableArchives) == 0 {
			continue
		}
		out = append(out, ToolVariant{
			Name:        pu.Name,
			Version:     pu.FullVersion,
			ReleaseDate: pu.ReleaseDate,
			DisplayName: pu.DisplayName,
			Description: pu.Description,
		})
	}
	if len(out) == 0 {
		return nil, aqterrors.NewEmptyMetadata(fmt.Sprintf("no variants found for tool %q", toolName))
	}
	return out, nil
}

// ValidateExtension applies the three Qt/architecture-extension compat
// rules from the original's validate_extension: Qt 6 Android requires an
// arch extension, other targets forbid one, and wasm requires a 5.13–5.x
// or 6.2+ desktop Qt.
func ValidateExtension(v qtversion.Version, extension string, target string) error {
	isAndroid := target == "android"
	isWasm := extension == "wasm"
	switch {
	case isAndroid && v.Major >= 6 && extension == "":
		return aqterrors.NewCliInputError("Qt 6 Android requires an architecture extension (e.g. armv7, arm64_v8a, x86, x86_64)")
	case !isAndroid && !isWasm && extension != "":
		return aqterrors.NewCliInputError(fmt.Sprintf("extension %q is not valid for target %q", extension, target))
	case isWasm:
		spec1, _ := qtversion.ParseSpec(">=5.13,<6")
		spec2, _ := qtversion.ParseSpec(">=6.2.0")
		if target != "desktop" || (!spec1.Match(v) && !spec2.Match(v)) {
			return aqterrors.NewCliInputError("wasm requires a desktop Qt in range >=5.13,<6 or >=6.2.0")
		}
	}
	return nil
}

// ChooseHighestVersionInSpec returns the highest version among candidates
// (for example, versions already gathered from each extension folder that
// archiveid.PossibleExtensionsForArch names), or false if candidates is
// empty. It does no spec matching or fetching itself.
func ChooseHighestVersionInSpec(candidates []qtversion.Version) (qtversion.Version, bool) {
	if len(candidates) == 0 {
		return qtversion.Version{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if best.Less(c) {
			best = c
		}
	}
	return best, true
}
