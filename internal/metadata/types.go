package metadata

import (
	"sort"
	"strings"

	"github.com/goaqt/aqt/internal/qtversion"
)

// Versions groups a flat list of versions by minor release, matching the
// original's itertools.groupby-based Versions wrapper, so list-qt's version
// listing renders one line per minor series.
type Versions struct {
	groups [][]qtversion.Version
}

// NewVersions sorts vs in ascending order (in place) and groups it by
// (major, minor).
func NewVersions(vs []qtversion.Version) Versions {
	sort.Slice(vs, func(i, j int) bool { return vs[i].Less(vs[j]) })
	var groups [][]qtversion.Version
	for _, v := range vs {
		if len(groups) == 0 {
			groups = append(groups, []qtversion.Version{v})
			continue
		}
		last := groups[len(groups)-1]
		if last[0].Major == v.Major && last[0].Minor == v.Minor {
			groups[len(groups)-1] = append(last, v)
		} else {
			groups = append(groups, []qtversion.Version{v})
		}
	}
	return Versions{groups: groups}
}

// Latest returns the most recent version across all groups, or the zero
// Version and false if there are none.
func (v Versions) Latest() (qtversion.Version, bool) {
	if len(v.groups) == 0 {
		return qtversion.Version{}, false
	}
	last := v.groups[len(v.groups)-1]
	return last[len(last)-1], true
}

// Flattened returns every version across every group, in ascending order.
func (v Versions) Flattened() []qtversion.Version {
	var out []qtversion.Version
	for _, g := range v.groups {
		out = append(out, g...)
	}
	return out
}

// String renders one minor-release group per line, space-separated within
// a line, matching the original's Versions.__format__ for multi-line mode.
func (v Versions) String() string {
	lines := make([]string, 0, len(v.groups))
	for _, g := range v.groups {
		parts := make([]string, len(g))
		for i, ver := range g {
			parts[i] = ver.String()
		}
		lines = append(lines, strings.Join(parts, " "))
	}
	return strings.Join(lines, "\n")
}

// ToolVariant describes one installable component of a standalone tool
// (e.g. the package "qt.tools.qtcreator"); Name holds the full package name.
type ToolVariant struct {
	Name        string
	Version     string
	ReleaseDate string
	DisplayName string
	Description string
}
