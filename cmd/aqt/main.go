// Command aqt resolves, downloads, extracts and patches Qt SDK
// installations from a download.qt.io-shaped repository.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goaqt/aqt/internal/aqterrors"
	"github.com/goaqt/aqt/internal/aqtlog"
	"github.com/goaqt/aqt/internal/aqtrun"
	"github.com/goaqt/aqt/internal/config"
)

var (
	configPath string
	debug      bool
	settings   *config.Settings
)

func main() {
	root := &cobra.Command{
		Use:   "aqt",
		Short: "An unofficial Qt SDK installer",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to an aqt settings.ini-style configuration file")
	root.PersistentFlags().BoolVarP(&debug, "verbose", "v", false, "enable debug logging")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		aqtlog.SetDebug(debug || os.Getenv("AQT_DEBUG") == "1")
		s, err := config.Load(configPath)
		if err != nil {
			return aqterrors.NewCliInputError(fmt.Sprintf("loading configuration: %v", err))
		}
		settings = s
		return nil
	}

	root.AddCommand(
		newInstallQtCmd(),
		newInstallToolCmd(),
		newInstallSrcDocExamplesCmd("install-src", "src"),
		newInstallSrcDocExamplesCmd("install-doc", "doc"),
		newInstallSrcDocExamplesCmd("install-example", "examples"),
		newListQtCmd(),
		newListToolCmd(),
	)

	ctx, cancel := aqtrun.InterruptibleContext()
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		exitCode := mapErrorToExitCode(err)
		fmt.Fprintln(os.Stderr, err)
		if err := aqtrun.RunAtExit(); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode)
	}
	if err := aqtrun.RunAtExit(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(254)
	}
}

// mapErrorToExitCode maps the aqterrors taxonomy to the exit codes the
// original's Cli.run associates with each AqtException subclass: 1 for a
// recognized, handled failure, 130 for an interrupted install (128+SIGINT),
// and 254 for anything unrecognized (a bug, in the original's own words).
func mapErrorToExitCode(err error) int {
	switch err.(type) {
	case *aqterrors.CliKeyboardInterrupt:
		return 130
	case *aqterrors.ArchiveDownloadError,
		*aqterrors.ArchiveChecksumError,
		*aqterrors.ChecksumDownloadFailure,
		*aqterrors.ArchiveConnectionError,
		*aqterrors.ArchiveListError,
		*aqterrors.NoPackageFound,
		*aqterrors.EmptyMetadata,
		*aqterrors.CliInputError,
		*aqterrors.ArchiveExtractionError,
		*aqterrors.UpdaterError,
		*aqterrors.OutOfMemory,
		*aqterrors.OutOfDiskSpace,
		*aqterrors.DiskAccessNotPermitted:
		return 1
	default:
		return 254
	}
}
