package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/goaqt/aqt/internal/aqterrors"
	"github.com/goaqt/aqt/internal/archiveid"
	"github.com/goaqt/aqt/internal/httpclient"
	"github.com/goaqt/aqt/internal/listing"
	"github.com/goaqt/aqt/internal/metadata"
	"github.com/goaqt/aqt/internal/qtversion"
)

type listQtFlags struct {
	host, target, arch, extension string
	spec                          string
	modules                       bool
	archs                         bool
	extensions                    bool
}

func newListQtCmd() *cobra.Command {
	var f listQtFlags
	cmd := &cobra.Command{
		Use:   "list-qt <host> <target> [version-or-spec]",
		Short: "List available Qt versions, architectures, modules and extensions",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.host, f.target = args[0], args[1]
			if len(args) == 3 {
				f.spec = args[2]
			}
			return runListQt(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVar(&f.arch, "arch", "", "list modules for this architecture (requires a version)")
	cmd.Flags().StringVar(&f.extension, "extension", "", "restrict the version listing to this architecture extension")
	cmd.Flags().BoolVar(&f.modules, "modules", false, "list modules for the given version/arch instead of versions")
	cmd.Flags().BoolVar(&f.archs, "archs", false, "list architectures for the given version instead of versions")
	cmd.Flags().BoolVar(&f.extensions, "extensions", false, "list extensions for the given version instead of versions")
	return cmd
}

func runListQt(ctx context.Context, f listQtFlags) error {
	id, err := archiveid.New(archiveid.CategoryQt, f.host, f.target, f.extension)
	if err != nil {
		return aqterrors.NewCliInputError(err.Error())
	}
	client := httpclient.New(settings)
	fac := metadata.NewFactory(client, settings, id)

	if f.spec == "" {
		spec, _ := qtversion.ParseSpec("")
		vs, err := fac.FetchVersions(ctx, spec)
		if err != nil {
			return err
		}
		listing.Versions(os.Stdout, vs)
		return nil
	}

	v, err := determineQtVersion(ctx, client, id, f.spec)
	if err != nil {
		return err
	}

	switch {
	case f.archs:
		arches, err := fac.FetchArches(ctx, v)
		if err != nil {
			return err
		}
		listing.PlainList(os.Stdout, arches)
	case f.extensions:
		exts, err := fac.FetchExtensions(ctx, v)
		if err != nil {
			return err
		}
		listing.PlainList(os.Stdout, exts)
	case f.modules:
		if f.arch == "" {
			return aqterrors.NewCliInputError("--modules requires --arch")
		}
		mods, err := fac.FetchModules(ctx, v, f.arch)
		if err != nil {
			return err
		}
		listing.PlainList(os.Stdout, mods)
	default:
		spec, _ := qtversion.ParseSpec(v.String())
		vs, err := fac.FetchVersions(ctx, spec)
		if err != nil {
			return err
		}
		listing.Versions(os.Stdout, vs)
	}
	return nil
}

type listToolFlags struct {
	host string
	tool string
	long bool
}

func newListToolCmd() *cobra.Command {
	var f listToolFlags
	cmd := &cobra.Command{
		Use:   "list-tool <host> [tool-name]",
		Short: "List available standalone tools, or the variants of one tool",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.host = args[0]
			if len(args) == 2 {
				f.tool = args[1]
			}
			return runListTool(cmd.Context(), f)
		},
	}
	cmd.Flags().BoolVarP(&f.long, "long", "l", false, "show the long-format table (name, version, release date, description)")
	return cmd
}

func runListTool(ctx context.Context, f listToolFlags) error {
	id, err := archiveid.New(archiveid.CategoryTools, f.host, "desktop", "")
	if err != nil {
		return aqterrors.NewCliInputError(err.Error())
	}
	client := httpclient.New(settings)
	fac := metadata.NewFactory(client, settings, id)

	if f.tool == "" {
		tools, err := fac.FetchTools(ctx)
		if err != nil {
			return err
		}
		listing.PlainList(os.Stdout, tools)
		return nil
	}

	variants, err := fac.FetchToolModules(ctx, f.tool)
	if err != nil {
		return err
	}
	width := listing.TerminalWidth(os.Stdout)
	if f.long || width >= 95 {
		listing.ToolTable(os.Stdout, variants, width)
	} else {
		listing.ToolShortList(os.Stdout, variants)
	}
	return nil
}
