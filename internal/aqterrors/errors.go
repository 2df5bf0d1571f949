// Package aqterrors defines the error taxonomy raised throughout aqt-go's
// resolve-fetch-extract-patch pipeline. The exit code each kind maps to is
// chosen at the CLI boundary, in cmd/aqt.
package aqterrors

import "strings"

// Base carries the fields common to every error kind: a list of suggested
// follow-up actions for the user, and whether the CLI should print full
// command help alongside the error.
type Base struct {
	Msg       string
	Suggested []string
	ShowHelp  bool
	Err       error
}

func (b *Base) Error() string {
	if len(b.Suggested) == 0 {
		return b.Msg
	}
	var sb strings.Builder
	sb.WriteString(b.Msg)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 30))
	sb.WriteString("Suggested follow-up:")
	sb.WriteString(strings.Repeat("=", 30))
	sb.WriteString("\n")
	for _, s := range b.Suggested {
		sb.WriteString("* ")
		sb.WriteString(s)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (b *Base) Unwrap() error { return b.Err }

// AppendSuggested adds follow-up suggestions after construction, mirroring
// AqtException.append_suggested_follow_up in the original implementation.
func (b *Base) AppendSuggested(s ...string) {
	b.Suggested = append(b.Suggested, s...)
}

// ArchiveDownloadError reports a failure while downloading an archive or its
// checksum metadata.
type ArchiveDownloadError struct{ *Base }

func NewArchiveDownloadError(msg string, err error) *ArchiveDownloadError {
	return &ArchiveDownloadError{&Base{Msg: msg, Err: err}}
}

// ArchiveChecksumError reports a downloaded archive whose hash does not
// match the expected value.
type ArchiveChecksumError struct{ *Base }

func NewArchiveChecksumError(msg string, err error) *ArchiveChecksumError {
	return &ArchiveChecksumError{&Base{Msg: msg, Err: err}}
}

// ChecksumDownloadFailure reports that the checksum file itself could not be
// retrieved from any mirror, and always carries its own suggested follow-up.
type ChecksumDownloadFailure struct{ *Base }

const docsConfigURL = "https://aqtinstall.readthedocs.io/en/stable/configuration.html#configuration"

func NewChecksumDownloadFailure(msg string, err error) *ChecksumDownloadFailure {
	return &ChecksumDownloadFailure{&Base{
		Msg: msg,
		Err: err,
		Suggested: []string{
			"Check your internet connection",
			"Consider modifying MaxRetriesForHash in your configuration",
			"Consider modifying TrustedMirrors in your configuration (see " + docsConfigURL + ")",
		},
		ShowHelp: true,
	}}
}

// ArchiveConnectionError reports a transport-level failure talking to a
// mirror (as opposed to a well-formed 404 or checksum mismatch).
type ArchiveConnectionError struct{ *Base }

func NewArchiveConnectionError(msg string, err error) *ArchiveConnectionError {
	return &ArchiveConnectionError{&Base{Msg: msg, Err: err}}
}

// ArchiveListError reports a malformed or unreachable Updates.xml catalog.
type ArchiveListError struct{ *Base }

func NewArchiveListError(msg string, err error) *ArchiveListError {
	return &ArchiveListError{&Base{Msg: msg, Err: err}}
}

// NoPackageFound reports that the requested modules/archives could not be
// resolved against the catalog.
type NoPackageFound struct{ *Base }

func NewNoPackageFound(msg string) *NoPackageFound {
	return &NoPackageFound{&Base{Msg: msg}}
}

// EmptyMetadata reports that a metadata request produced zero results.
type EmptyMetadata struct{ *Base }

func NewEmptyMetadata(msg string) *EmptyMetadata {
	return &EmptyMetadata{&Base{Msg: msg}}
}

// CliInputError reports invalid CLI input, detected before any network I/O
// where possible.
type CliInputError struct{ *Base }

func NewCliInputError(msg string) *CliInputError {
	return &CliInputError{&Base{Msg: msg}}
}

// CliKeyboardInterrupt reports that the user interrupted an install.
type CliKeyboardInterrupt struct{ *Base }

func NewCliKeyboardInterrupt() *CliKeyboardInterrupt {
	return &CliKeyboardInterrupt{&Base{Msg: "keyboard interrupt"}}
}

// ArchiveExtractionError reports a failure unpacking a downloaded archive.
type ArchiveExtractionError struct{ *Base }

func NewArchiveExtractionError(msg string, err error) *ArchiveExtractionError {
	return &ArchiveExtractionError{&Base{Msg: msg, Err: err}}
}

// UpdaterError reports a failure during post-install prefix patching.
type UpdaterError struct{ *Base }

func NewUpdaterError(msg string, err error) *UpdaterError {
	return &UpdaterError{&Base{Msg: msg, Err: err}}
}

// OutOfMemory reports that extraction exhausted available memory, and
// always suggests reducing concurrency or using an external extractor.
type OutOfMemory struct{ *Base }

func NewOutOfMemory(msg string) *OutOfMemory {
	return &OutOfMemory{&Base{
		Msg: msg,
		Suggested: []string{
			"Reduce Concurrency in your configuration",
			"Install an external 7z executable and configure ZipCmd to use it",
		},
	}}
}

// OutOfDiskSpace reports that extraction ran out of disk space.
type OutOfDiskSpace struct{ *Base }

func NewOutOfDiskSpace(msg string) *OutOfDiskSpace {
	return &OutOfDiskSpace{&Base{Msg: msg}}
}

// DiskAccessNotPermitted reports that the installation directory could not
// be written to because of filesystem permissions.
type DiskAccessNotPermitted struct{ *Base }

func NewDiskAccessNotPermitted(msg string, err error) *DiskAccessNotPermitted {
	return &DiskAccessNotPermitted{&Base{Msg: msg, Err: err}}
}
