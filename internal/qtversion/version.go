// Package qtversion implements Qt's version grammar: a semver-like
// major.minor.patch triple with two non-standard extensions ("-preview"
// releases with no patch component, and a permissive parser for folder
// names that aren't quite semver) plus PEP 440-style specifier matching.
package qtversion

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/Masterminds/semver/v3"
)

// Version is a parsed Qt version: either a released M.m.p triple, or an
// M.m "-preview" build identified only by major and minor.
type Version struct {
	Major, Minor, Patch int
	Preview             bool
	// Build carries the trailing identifier permissive() recovers from
	// folder names that don't fit the strict grammar (e.g. the date-stamped
	// "202102101246" suffix on Qt for MCUs snapshot folders).
	Build string
}

var strictRe = regexp.MustCompile(`^(\d+)\.(\d+)(\.(\d+)|-preview)$`)

// Parse accepts only the exact two grammars Qt's Updates.xml and folder
// names use for released versions: "M.m.p" and "M.m-preview".
func Parse(s string) (Version, error) {
	m := strictRe.FindStringSubmatch(s)
	if m == nil {
		return Version{}, fmt.Errorf("qtversion: %q is not a valid Qt version", s)
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	if m[3] == "-preview" {
		return Version{Major: major, Minor: minor, Preview: true}, nil
	}
	patch, _ := strconv.Atoi(m[4])
	return Version{Major: major, Minor: minor, Patch: patch}, nil
}

var permissiveRe = regexp.MustCompile(`^(\d+)(\.(\d+)(\.(\d+))?)?(-(.+))?$`)

// Permissive parses the looser set of strings that show up in folder
// listings and --qt-version arguments: a bare major, "major.minor",
// "major.minor.patch", any of those with a "-suffix" tacked on, and the
// date-stamped forms Qt for MCUs and preview snapshots use
// (e.g. "1.33-202102101246", "2020-05-19-1").
func Permissive(s string) (Version, error) {
	m := permissiveRe.FindStringSubmatch(s)
	if m == nil {
		return Version{}, fmt.Errorf("qtversion: %q cannot be parsed permissively", s)
	}
	major, _ := strconv.Atoi(m[1])
	v := Version{Major: major}
	if m[3] != "" {
		minor, _ := strconv.Atoi(m[3])
		v.Minor = minor
	}
	if m[5] != "" {
		patch, _ := strconv.Atoi(m[5])
		v.Patch = patch
	}
	if m[7] != "" {
		v.Build = m[7]
	}
	return v, nil
}

// String renders the version the way Qt folder names and Updates.xml do:
// "major.minor.patch", or "major.minor-preview" for preview releases.
func (v Version) String() string {
	if v.Preview {
		return fmt.Sprintf("%d.%d-preview", v.Major, v.Minor)
	}
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// NoDots renders the version with no separators, as used in archive
// folder names (e.g. "qt5150win64_mingw81"). Qt 5.9.0 and preview
// releases omit the patch digit ("59", "63").
func (v Version) NoDots() string {
	if v.Preview || (v.Major == 5 && v.Minor == 9 && v.Patch == 0) {
		return fmt.Sprintf("%d%d", v.Major, v.Minor)
	}
	return fmt.Sprintf("%d%d%d", v.Major, v.Minor, v.Patch)
}

func (v Version) semver() *semver.Version {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Preview {
		// semver prerelease identifiers always sort below the release of
		// the same triple, which is exactly the ordering "-preview" needs.
		s += "-preview"
	}
	sv, _ := semver.NewVersion(s)
	return sv
}

// Compare returns -1, 0 or +1 as v is less than, equal to, or greater than
// other, delegating ordering to semver/v3 once both sides are normalized
// to a major.minor.patch triple (with a "-preview" prerelease for preview
// builds).
func (v Version) Compare(other Version) int {
	return v.semver().Compare(other.semver())
}

// Less reports whether v sorts before other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

// Equal reports whether v and other denote the same released version.
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0 && v.Preview == other.Preview
}
