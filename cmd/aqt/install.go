package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goaqt/aqt/internal/aqterrors"
	"github.com/goaqt/aqt/internal/aqtlog"
	"github.com/goaqt/aqt/internal/archiveid"
	"github.com/goaqt/aqt/internal/httpclient"
	"github.com/goaqt/aqt/internal/installer"
	"github.com/goaqt/aqt/internal/metadata"
	"github.com/goaqt/aqt/internal/patcher"
	"github.com/goaqt/aqt/internal/qtversion"
	"github.com/goaqt/aqt/internal/resolver"
)

var installLog = aqtlog.For("cmd.install")

type installQtFlags struct {
	host, target, arch string
	modules             []string
	allModules          bool
	archives            []string
	noArchives          bool
	baseDir             string
	keep                bool
	archiveDest         string
	extractorCmd        string
}

func newInstallQtCmd() *cobra.Command {
	var f installQtFlags
	cmd := &cobra.Command{
		Use:   "install-qt <host> <target> <version-or-spec>",
		Short: "Install a Qt SDK",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.host, f.target = args[0], args[1]
			return runInstallQt(cmd.Context(), f, args[2])
		},
	}
	cmd.Flags().StringVar(&f.arch, "arch", "", "architecture (default: the only valid one for host/target, if unambiguous)")
	cmd.Flags().StringSliceVarP(&f.modules, "modules", "m", nil, "additional modules to install")
	cmd.Flags().BoolVar(&f.allModules, "all-modules", false, "install every available module")
	cmd.Flags().StringSliceVar(&f.archives, "archives", nil, "restrict the base and debug_info packages to these subarchives")
	cmd.Flags().BoolVar(&f.noArchives, "noarchives", false, "skip the base package entirely (requires --modules, mutually exclusive with --archives)")
	cmd.Flags().StringVarP(&f.baseDir, "outputdir", "O", ".", "installation base directory")
	cmd.Flags().BoolVarP(&f.keep, "keep", "k", false, "keep downloaded archives instead of deleting them")
	cmd.Flags().StringVar(&f.archiveDest, "archive-dest", "", "directory to download archives into")
	cmd.Flags().StringVar(&f.extractorCmd, "7z", "", "external 7z-compatible executable (default: built-in extractor)")
	return cmd
}

// validateArchivesFlags enforces the original's --noarchives/--archives/
// --modules interplay: --noarchives drops the base package and therefore
// requires an explicit --modules list, and --noarchives/--archives are
// mutually exclusive (--noarchives implies no subarchives to filter by).
func validateArchivesFlags(f installQtFlags) error {
	if f.noArchives {
		if len(f.modules) == 0 {
			return aqterrors.NewCliInputError("--noarchives requires --modules")
		}
		if len(f.archives) > 0 {
			return aqterrors.NewCliInputError("--archives and --noarchives are mutually exclusive")
		}
	}
	return nil
}

func resolveArch(f installQtFlags) (string, error) {
	if f.arch != "" {
		if !settings.CheckQtCombination(f.host, f.target, f.arch) {
			return "", aqterrors.NewCliInputError(fmt.Sprintf("%q is not a valid architecture for %s/%s", f.arch, f.host, f.target))
		}
		return f.arch, nil
	}
	archs := settings.QtCombinations[f.host+"/"+f.target]
	if len(archs) != 1 {
		return "", aqterrors.NewCliInputError(fmt.Sprintf("--arch is required for %s/%s", f.host, f.target))
	}
	return archs[0], nil
}

func runInstallQt(ctx context.Context, f installQtFlags, versionOrSpec string) error {
	if err := validateArchivesFlags(f); err != nil {
		return err
	}
	arch, err := resolveArch(f)
	if err != nil {
		return err
	}
	client := httpclient.New(settings)

	// A first pass resolves the version against the no-extension id; the
	// extension folder (if any) depends on whether that version is Qt 6,
	// which isn't known until the version itself is resolved.
	probeID, err := archiveid.New(archiveid.CategoryQt, f.host, f.target, "")
	if err != nil {
		return aqterrors.NewCliInputError(err.Error())
	}
	v, err := determineQtVersion(ctx, client, probeID, versionOrSpec)
	if err != nil {
		return err
	}

	ext := archiveid.ExtensionForArch(arch, v.Major >= 6)
	if err := metadata.ValidateExtension(v, ext, f.target); err != nil {
		return err
	}
	id, err := archiveid.New(archiveid.CategoryQt, f.host, f.target, ext)
	if err != nil {
		return aqterrors.NewCliInputError(err.Error())
	}

	r := resolver.New(client, settings)
	packages, unresolved, err := r.ResolveQt(ctx, id, v, arch, f.modules, f.archives, f.allModules, !f.noArchives)
	if err != nil {
		if len(unresolved) > 0 {
			installLog.WithField("modules", strings.Join(unresolved, ", ")).Warn("some requested modules could not be resolved")
		}
		return err
	}

	archDir, err := filepath.Abs(filepath.Join(f.baseDir, v.String(), arch))
	if err != nil {
		return err
	}
	opts := installer.Options{
		BaseDir:      f.baseDir,
		Keep:         f.keep,
		ArchiveDest:  f.archiveDest,
		ExtractorCmd: f.extractorCmd,
	}
	if err := installer.Install(ctx, client, settings, packages, opts, nil); err != nil {
		return err
	}

	target := patcher.Target{
		OSName:       f.host,
		ArchDir:      archDir,
		Version:      v.String(),
		VersionMajor: v.Major,
		Arch:         arch,
	}
	if v.Major >= 6 {
		desktopArchDir, err := resolveDesktopArchDir(ctx, client, f, v)
		if err != nil {
			installLog.WithError(err).Warn("could not resolve a desktop Qt for mobile/wasm patching")
		} else {
			target.DesktopArchDir = desktopArchDir
		}
	}
	if err := patcher.Update(target); err != nil {
		return err
	}
	fmt.Printf("Installed Qt %s (%s) into %s\n", v, arch, archDir)
	return nil
}

// resolveDesktopArchDir finds the desktop Qt architecture directory a Qt 6
// mobile/wasm installation's host tools should point at, matching the
// original's fetch_default_desktop_arch lookup: the first architecture the
// desktop catalog lists for the same version, as an absolute path.
func resolveDesktopArchDir(ctx context.Context, client *httpclient.Client, f installQtFlags, v qtversion.Version) (string, error) {
	id, err := archiveid.New(archiveid.CategoryQt, f.host, "desktop", "")
	if err != nil {
		return "", err
	}
	fac := metadata.NewFactory(client, settings, id)
	arches, err := fac.FetchArches(ctx, v)
	if err != nil || len(arches) == 0 {
		return "", aqterrors.NewNoPackageFound("no desktop Qt found to patch mobile/wasm host tools against")
	}
	return filepath.Abs(filepath.Join(f.baseDir, v.String(), arches[0]))
}

func determineQtVersion(ctx context.Context, client *httpclient.Client, id archiveid.ArchiveId, versionOrSpec string) (qtversion.Version, error) {
	if v, err := qtversion.Parse(versionOrSpec); err == nil {
		return v, nil
	}
	spec, err := qtversion.ParseSpec(versionOrSpec)
	if err != nil {
		return qtversion.Version{}, aqterrors.NewCliInputError(fmt.Sprintf("%q is neither a valid Qt version nor a valid spec (%s)", versionOrSpec, qtversion.Usage))
	}
	fac := metadata.NewFactory(client, settings, id)
	return fac.FetchLatestVersion(ctx, spec)
}

type installToolFlags struct {
	host, variant, toolVersion string
	baseDir                    string
	keep                       bool
	archiveDest                string
	extractorCmd               string
}

func newInstallToolCmd() *cobra.Command {
	var f installToolFlags
	cmd := &cobra.Command{
		Use:   "install-tool <host> <tool-name> [variant] [version]",
		Short: "Install a standalone tool (Qt Creator, CMake, Ninja, ...)",
		Args:  cobra.RangeArgs(2, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.host = args[0]
			toolName := args[1]
			if len(args) > 2 {
				f.variant = args[2]
			}
			if len(args) > 3 {
				f.toolVersion = args[3]
			}
			return runInstallTool(cmd.Context(), f, toolName)
		},
	}
	cmd.Flags().StringVarP(&f.baseDir, "outputdir", "O", ".", "installation base directory")
	cmd.Flags().BoolVarP(&f.keep, "keep", "k", false, "keep downloaded archives instead of deleting them")
	cmd.Flags().StringVar(&f.archiveDest, "archive-dest", "", "directory to download archives into")
	cmd.Flags().StringVar(&f.extractorCmd, "7z", "", "external 7z-compatible executable (default: built-in extractor)")
	return cmd
}

func runInstallTool(ctx context.Context, f installToolFlags, toolName string) error {
	id, err := archiveid.New(archiveid.CategoryTools, f.host, "desktop", "")
	if err != nil {
		return aqterrors.NewCliInputError(err.Error())
	}
	client := httpclient.New(settings)

	variant := f.variant
	if variant == "" {
		fac := metadata.NewFactory(client, settings, id)
		variants, err := fac.FetchToolModules(ctx, toolName)
		if err != nil {
			return err
		}
		variant = variants[len(variants)-1].Name
	}

	r := resolver.New(client, settings)
	packages, err := r.ResolveTool(ctx, id, toolName, variant, f.toolVersion)
	if err != nil {
		return err
	}

	opts := installer.Options{
		BaseDir:      f.baseDir,
		Keep:         f.keep,
		ArchiveDest:  f.archiveDest,
		ExtractorCmd: f.extractorCmd,
	}
	if err := installer.Install(ctx, client, settings, packages, opts, nil); err != nil {
		return err
	}
	fmt.Printf("Installed tool %s (%s) into %s\n", toolName, variant, f.baseDir)
	return nil
}

type installSDEFlags struct {
	host, target, arch string
	modules             []string
	allModules          bool
	archives            []string
	baseDir             string
	keep                bool
	archiveDest         string
	extractorCmd        string
	kde                 bool
}

// newInstallSrcDocExamplesCmd builds the install-src/install-doc/
// install-example commands, which share one resolver flavor
// (FlavorSrcDocExamples) differing only in the "src"/"doc"/"examples"
// module-name component.
func newInstallSrcDocExamplesCmd(use, flavor string) *cobra.Command {
	var f installSDEFlags
	cmd := &cobra.Command{
		Use:   use + " <host> <version-or-spec>",
		Short: fmt.Sprintf("Install Qt %s archives", flavor),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.host = args[0]
			return runInstallSDE(cmd.Context(), f, flavor, args[1])
		},
	}
	cmd.Flags().StringSliceVarP(&f.modules, "modules", "m", nil, "additional modules to install")
	cmd.Flags().BoolVar(&f.allModules, "all-modules", false, "install every available module")
	cmd.Flags().StringSliceVar(&f.archives, "archives", nil, "restrict the base and debug_info packages to these subarchives")
	cmd.Flags().StringVarP(&f.baseDir, "outputdir", "O", ".", "installation base directory")
	cmd.Flags().BoolVarP(&f.keep, "keep", "k", false, "keep downloaded archives instead of deleting them")
	cmd.Flags().StringVar(&f.archiveDest, "archive-dest", "", "directory to download archives into")
	cmd.Flags().StringVar(&f.extractorCmd, "7z", "", "external 7z-compatible executable (default: built-in extractor)")
	if use == "install-src" {
		cmd.Flags().BoolVar(&f.kde, "kde", false, "apply KDE patches to the downloaded Qt source (unsupported)")
	}
	return cmd
}

func runInstallSDE(ctx context.Context, f installSDEFlags, flavor, versionOrSpec string) error {
	if f.kde {
		return aqterrors.NewCliInputError("KDE source patching is not supported; apply KDE patches manually after install-src completes")
	}
	id, err := archiveid.New(archiveid.CategoryQt, f.host, "desktop", "src_doc_examples")
	if err != nil {
		return aqterrors.NewCliInputError(err.Error())
	}
	client := httpclient.New(settings)
	v, err := determineQtVersion(ctx, client, id, versionOrSpec)
	if err != nil {
		return err
	}

	r := resolver.New(client, settings)
	packages, unresolved, err := r.ResolveSrcDocExamples(ctx, id, v, f.modules, f.archives, f.allModules)
	if err != nil {
		if len(unresolved) > 0 {
			installLog.WithField("modules", strings.Join(unresolved, ", ")).Warn("some requested modules could not be resolved")
		}
		return err
	}

	opts := installer.Options{
		BaseDir:      f.baseDir,
		Keep:         f.keep,
		ArchiveDest:  f.archiveDest,
		ExtractorCmd: f.extractorCmd,
	}
	if err := installer.Install(ctx, client, settings, packages, opts, nil); err != nil {
		return err
	}
	fmt.Printf("Installed Qt %s %s into %s\n", v, flavor, f.baseDir)
	return nil
}
