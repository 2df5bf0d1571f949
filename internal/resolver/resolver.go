// Package resolver turns a (version, architecture, module list) request
// into the concrete list of archives to download, by matching requested
// modules against Updates.xml package names. A single Flavor-dispatched
// type replaces the QtArchives/SrcDocExamplesArchives/ToolArchives
// subclass hierarchy of the original: the three flavors differ only in
// which package-name candidates they generate and which folder they read,
// both of which are plain data here rather than overridden methods.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/goaqt/aqt/internal/aqterrors"
	"github.com/goaqt/aqt/internal/archiveid"
	"github.com/goaqt/aqt/internal/catalog"
	"github.com/goaqt/aqt/internal/config"
	"github.com/goaqt/aqt/internal/httpclient"
	"github.com/goaqt/aqt/internal/qtversion"
)

// Flavor selects which package-name grammar a request uses.
type Flavor int

const (
	// FlavorQt resolves ordinary Qt module/base packages.
	FlavorQt Flavor = iota
	// FlavorSrcDocExamples resolves the src/doc/examples archive sets,
	// which share Qt's Updates.xml shape but use "src"/"doc"/"examples" in
	// place of the base module name.
	FlavorSrcDocExamples
	// FlavorTool resolves standalone tool archives (Qt Installer Framework
	// tools such as qtcreator, ifw, cmake), which have no "base" package
	// and no version to pin beyond an exact tool_version match.
	FlavorTool
)

// TargetConfig names the (version, arch, os, target) tuple a resolved
// package set was built for.
type TargetConfig struct {
	Version string
	Arch    string
	OSName  string
	Target  string
}

// QtPackage is one resolved, downloadable archive.
type QtPackage struct {
	Name          string // the PackageUpdate name this archive belongs to
	BaseURL       string
	ArchivePath   string // path to the archive, relative to BaseURL
	Archive       string // archive file name alone
	PackageDesc   string
	PkgUpdateName string
	Version       string
}

// URL returns the full download URL for the archive.
func (p QtPackage) URL() string {
	return httpclient.URLJoin(p.BaseURL, p.ArchivePath)
}

// Resolver resolves archive requests against one repository.
type Resolver struct {
	client   *httpclient.Client
	settings *config.Settings
}

// New constructs a Resolver.
func New(client *httpclient.Client, settings *config.Settings) *Resolver {
	return &Resolver{client: client, settings: settings}
}

// shouldFilterArchives reports whether subarchive filtering applies to a
// package, matching should_filter_archives: true for the base packages and
// for any "debug_info" package, neither of which respect module selection.
func shouldFilterArchives(packageName string, baseNames []string) bool {
	for _, b := range baseNames {
		if packageName == b {
			return true
		}
	}
	return strings.Contains(packageName, "debug_info")
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func baseModuleName(flavor Flavor) string {
	switch flavor {
	case FlavorSrcDocExamples:
		return "src_doc_examples"
	default:
		return "qt_base"
	}
}

// candidatesForModule builds the 2-3 package-name spellings a module might
// appear under, matching _target_packages' per-module candidate set.
func candidatesForModule(flavor Flavor, major int, verStr, module, arch, srcDocExamplesFlavor string) []string {
	if flavor == FlavorSrcDocExamples {
		return []string{fmt.Sprintf("qt.qt%d.%s.%s.%s", major, verStr, srcDocExamplesFlavor, module)}
	}
	var out []string
	if !strings.HasPrefix(module, "addons.") {
		out = append(out, fmt.Sprintf("qt.qt%d.%s.addons.%s.%s", major, verStr, module, arch))
	}
	out = append(out,
		fmt.Sprintf("qt.qt%d.%s.%s.%s", major, verStr, module, arch),
		fmt.Sprintf("qt.%s.%s.%s", verStr, module, arch),
	)
	return out
}

func baseCandidates(flavor Flavor, major int, verStr, arch string) []string {
	if flavor == FlavorSrcDocExamples {
		return []string{fmt.Sprintf("qt.qt%d.%s.%s", major, verStr, baseModuleName(flavor))}
	}
	return []string{
		fmt.Sprintf("qt.qt%d.%s.%s", major, verStr, arch),
		fmt.Sprintf("qt.%s.%s", verStr, arch),
	}
}

func (r *Resolver) targetPackages(flavor Flavor, v qtversion.Version, arch string, modules []string, includeBase bool) *catalog.ModuleToPackage {
	m := catalog.NewModuleToPackage()
	verStr := v.NoDots()
	if includeBase {
		m.Add(baseModuleName(flavor), baseCandidates(flavor, v.Major, verStr, arch)...)
	}
	for _, mod := range modules {
		m.Add(mod, candidatesForModule(flavor, v.Major, verStr, mod, arch, "")...)
	}
	return m
}

// ResolveQt resolves a Qt module/base archive set for one version+arch,
// matching QtArchives._get_archives/_parse_update_xml. archives, when
// non-empty, restricts which subarchives of the base and debug_info
// packages are kept (the --archives CLI filter); a nil or empty slice keeps
// every subarchive. includeBase false (the --noarchives CLI flag) leaves the
// base package out of the request.
func (r *Resolver) ResolveQt(ctx context.Context, id archiveid.ArchiveId, v qtversion.Version, arch string, modules, archives []string, allExtra bool, includeBase bool) ([]QtPackage, []string, error) {
	return r.resolve(ctx, FlavorQt, id, v, arch, modules, archives, allExtra, includeBase)
}

// ResolveSrcDocExamples resolves the src/doc/examples archive set.
func (r *Resolver) ResolveSrcDocExamples(ctx context.Context, id archiveid.ArchiveId, v qtversion.Version, modules, archives []string, allExtra bool) ([]QtPackage, []string, error) {
	return r.resolve(ctx, FlavorSrcDocExamples, id, v, "", modules, archives, allExtra, true)
}

func (r *Resolver) resolve(ctx context.Context, flavor Flavor, id archiveid.ArchiveId, v qtversion.Version, arch string, modules, archives []string, allExtra, includeBase bool) ([]QtPackage, []string, error) {
	verStr := v.NoDots()
	folder := id.ToFolder(id.Category, verStr)
	folderURL := id.ToURL() + folder + "/"
	text, err := r.client.GetText(ctx, folderURL+"Updates.xml")
	if err != nil {
		return nil, nil, aqterrors.NewArchiveListError("fetching "+folderURL+"Updates.xml", err)
	}
	u, err := catalog.Parse(text)
	if err != nil {
		return nil, nil, aqterrors.NewArchiveListError("parsing "+folderURL+"Updates.xml", err)
	}

	tp := r.targetPackages(flavor, v, arch, modules, includeBase)
	baseNames := baseCandidates(flavor, v.Major, verStr, arch)

	var packages []QtPackage
	for _, pu := range u.PackageUpdates {
		if arch != "" && !strings.HasSuffix(pu.Name, "."+arch) {
			continue
		}
		if !allExtra {
			if err := tp.RemoveModuleForPackage(pu.Name); err != nil {
				continue // not one of the requested modules/base
			}
		}
		filterSub := len(archives) > 0 && shouldFilterArchives(pu.Name, baseNames)
		for _, da := range pu.DownloadableArchives {
			if filterSub {
				base := da
				if idx := strings.Index(base, "-"); idx > -1 {
					base = base[:idx]
				}
				if !contains(archives, base) {
					continue
				}
			}
			packages = append(packages, QtPackage{
				Name:          pu.Name,
				BaseURL:       r.settings.BaseURL,
				ArchivePath:   folderURL + pu.Name + "/" + pu.FullVersion + da,
				Archive:       da,
				PackageDesc:   pu.Description,
				PkgUpdateName: pu.Name,
				Version:       pu.FullVersion,
			})
		}
	}
	var unresolved []string
	if !allExtra && tp.Len() > 0 {
		unresolved = tp.UnresolvedModules()
		return nil, unresolved, aqterrors.NewNoPackageFound(fmt.Sprintf("no package found for modules: %s", strings.Join(unresolved, ", ")))
	}
	if len(packages) == 0 {
		return nil, nil, aqterrors.NewNoPackageFound(fmt.Sprintf("no downloadable archives found for Qt %s %s", v, arch))
	}
	return packages, nil, nil
}

// ResolveTool resolves one variant of a standalone tool. If toolVersion is
// non-empty, it must exactly match the variant's full version string,
// matching _append_tool_update's exact-match check.
func (r *Resolver) ResolveTool(ctx context.Context, id archiveid.ArchiveId, toolName, variantName, toolVersion string) ([]QtPackage, error) {
	folderURL := id.ToURL() + toolName + "/"
	text, err := r.client.GetText(ctx, folderURL+"Updates.xml")
	if err != nil {
		return nil, aqterrors.NewArchiveListError("fetching "+folderURL+"Updates.xml", err)
	}
	u, err := catalog.Parse(text)
	if err != nil {
		return nil, aqterrors.NewArchiveListError("parsing "+folderURL+"Updates.xml", err)
	}
	pu, ok := u.Get(variantName)
	if !ok {
		return nil, aqterrors.NewNoPackageFound(fmt.Sprintf("tool variant %q not found under %s", variantName, toolName))
	}
	if toolVersion != "" && pu.FullVersion != toolVersion {
		return nil, aqterrors.NewNoPackageFound(fmt.Sprintf("tool variant %q version %q does not match requested %q", variantName, pu.FullVersion, toolVersion))
	}
	if len(pu.DownloadableArchives) == 0 {
		return nil, aqterrors.NewNoPackageFound(fmt.Sprintf("tool variant %q has no downloadable archives", variantName))
	}
	var packages []QtPackage
	for _, da := range pu.DownloadableArchives {
		packages = append(packages, QtPackage{
			Name:          pu.Name,
			BaseURL:       r.settings.BaseURL,
			ArchivePath:   folderURL + pu.Name + "/" + pu.FullVersion + da,
			Archive:       da,
			PackageDesc:   pu.Description,
			PkgUpdateName: pu.Name,
			Version:       pu.FullVersion,
		})
	}
	return packages, nil
}
