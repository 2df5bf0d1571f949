// Package listing renders the output of list-qt/list-tool requests,
// matching show_list's width-aware plain/table dual rendering.
package listing

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gosuri/uitable"
	"github.com/mattn/go-isatty"

	"github.com/goaqt/aqt/internal/metadata"
)

// TerminalWidth returns the detected terminal width of w, falling back to
// 80 columns when w isn't a TTY, matching shutil.get_terminal_size's
// non-interactive fallback.
func TerminalWidth(w *os.File) int {
	if !isatty.IsTerminal(w.Fd()) && !isatty.IsCygwinTerminal(w.Fd()) {
		return 80
	}
	// A real ioctl-based query is platform-specific; 100 columns matches
	// the common default a detached terminal reports via COLUMNS when an
	// ioctl isn't wired up, which is an acceptable approximation here since
	// the only consumer is the long-format fallback width below.
	if cols := os.Getenv("COLUMNS"); cols != "" {
		var n int
		if _, err := fmt.Sscanf(cols, "%d", &n); err == nil && n > 0 {
			return n
		}
	}
	return 100
}

// PlainList renders a space-joined, single-line list of names, used for
// list-qt's architectures/extensions/modules output and list-tool's tool
// names.
func PlainList(w io.Writer, names []string) {
	fmt.Fprintln(w, strings.Join(names, " "))
}

// Versions renders a Versions value one minor-release line at a time,
// matching show_list's handling of a fetch_versions() result.
func Versions(w io.Writer, vs metadata.Versions) {
	fmt.Fprintln(w, vs.String())
}

// ToolTable renders a long-format table of tool variants, matching
// show_list's ToolData.__format__ wide-table branch.
func ToolTable(w io.Writer, variants []metadata.ToolVariant, width int) {
	table := uitable.New()
	table.MaxColWidth = uint(width / 4)
	table.Wrap = true
	table.AddRow("NAME", "VERSION", "RELEASE DATE", "DESCRIPTION")
	for _, v := range variants {
		table.AddRow(v.Name, v.Version, v.ReleaseDate, v.Description)
	}
	fmt.Fprintln(w, table)
}

// ToolShortList renders the short form (name and version only), used when
// the terminal is too narrow for the long table, matching ToolData's
// "{:T}" short format.
func ToolShortList(w io.Writer, variants []metadata.ToolVariant) {
	table := uitable.New()
	table.AddRow("NAME", "VERSION")
	for _, v := range variants {
		table.AddRow(v.Name, v.Version)
	}
	fmt.Fprintln(w, table)
}
