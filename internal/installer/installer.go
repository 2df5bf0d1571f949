// Package installer downloads and extracts a resolved set of archives
// concurrently, verifying checksums and retrying on mirror failure, the Go
// counterpart to installer.py's multiprocessing pool.
package installer

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/goaqt/aqt/internal/aqterrors"
	"github.com/goaqt/aqt/internal/aqtlog"
	"github.com/goaqt/aqt/internal/config"
	"github.com/goaqt/aqt/internal/httpclient"
	"github.com/goaqt/aqt/internal/resolver"
	"github.com/goaqt/aqt/internal/sevenzip"
)

var log = aqtlog.For("installer")

// Options configures one Install run.
type Options struct {
	BaseDir      string
	Keep         bool
	ArchiveDest  string // explicit archive download directory, if any
	ExtractorCmd string // external 7z-compatible executable; "" uses the built-in decoder
}

// ChooseArchiveDest implements the original's choose_archive_dest
// three-way rule: an explicit ArchiveDest wins, Keep with no explicit
// destination falls back to the configured ArchiveDownloadLocation, and
// the default is a fresh temp directory.
func ChooseArchiveDest(opts Options, settings *config.Settings) (dir string, cleanup func(), err error) {
	if opts.ArchiveDest != "" {
		if err := os.MkdirAll(opts.ArchiveDest, 0755); err != nil {
			return "", nil, err
		}
		return opts.ArchiveDest, func() {}, nil
	}
	if opts.Keep && settings.ArchiveDownloadLocation != "" {
		if err := os.MkdirAll(settings.ArchiveDownloadLocation, 0755); err != nil {
			return "", nil, err
		}
		return settings.ArchiveDownloadLocation, func() {}, nil
	}
	dir, err = os.MkdirTemp("", "aqt-archives-")
	if err != nil {
		return "", nil, err
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}

// Progress reports how many packages have completed, for a CLI progress
// bar; fields start at zero and are polled concurrently while Install runs.
// Install sets Total and increments Done; it does not update BytesDone.
type Progress struct {
	BytesDone int64
	Total     int
	Done      int32
}

// Install downloads, verifies and extracts every package into opts.BaseDir,
// running up to settings.Concurrency workers concurrently via an errgroup,
// matching run_installer's bounded multiprocessing Pool. Workers ignore
// nothing themselves here (there is no separate worker process to signal);
// the caller's ctx, wired to SIGINT via aqtrun.InterruptibleContext, is
// what stops in-flight workers on interrupt.
func Install(ctx context.Context, client *httpclient.Client, settings *config.Settings, packages []resolver.QtPackage, opts Options, progress *Progress) error {
	archiveDir, cleanupArchives, err := ChooseArchiveDest(opts, settings)
	if err != nil {
		return err
	}
	defer cleanupArchives()

	if progress != nil {
		progress.Total = len(packages)
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxInt(1, settings.Concurrency))
	for _, pkg := range packages {
		pkg := pkg
		eg.Go(func() error {
			if err := installOne(gctx, client, pkg, archiveDir, opts); err != nil {
				return err
			}
			if progress != nil {
				atomic.AddInt32(&progress.Done, 1)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		if ctx.Err() != nil {
			return aqterrors.NewCliKeyboardInterrupt()
		}
		return err
	}
	return nil
}

func installOne(ctx context.Context, client *httpclient.Client, pkg resolver.QtPackage, archiveDir string, opts Options) error {
	archivePath := filepath.Join(archiveDir, filepath.Base(pkg.Archive))
	log.WithField("archive", pkg.Archive).Debug("downloading")
	if err := client.DownloadToFile(ctx, pkg.ArchivePath, archivePath); err != nil {
		return err
	}
	if !opts.Keep {
		defer os.Remove(archivePath)
	}
	log.WithField("archive", pkg.Archive).Debug("extracting")
	if err := sevenzip.Extract(ctx, archivePath, opts.BaseDir, opts.ExtractorCmd); err != nil {
		return err
	}
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
