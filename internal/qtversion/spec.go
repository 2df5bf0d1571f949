package qtversion

import (
	pep440 "github.com/aquasecurity/go-pep440-version"
	"golang.org/x/xerrors"
)

// Spec is a version range expression such as ">=5.13,<6" or "5.15.2",
// matching the original's SimpleSpec syntax. It is backed by PEP 440
// specifier sets: both grammars are "comma-separated AND of comparison
// operators against a dotted version", so the PEP 440 matcher is reused
// wholesale rather than writing a second comparator from scratch.
type Spec struct {
	raw   string
	specs pep440.Specifiers
}

// ParseSpec parses a Qt-style simple version spec. An empty string matches
// every version.
func ParseSpec(s string) (Spec, error) {
	if s == "" {
		return Spec{raw: s}, nil
	}
	specs, err := pep440.NewSpecifiers(s)
	if err != nil {
		return Spec{}, xerrors.Errorf("qtversion: invalid spec %q: %w", s, err)
	}
	return Spec{raw: s, specs: specs}, nil
}

// Match reports whether v satisfies the spec.
func (s Spec) Match(v Version) bool {
	if s.raw == "" {
		return true
	}
	pv, err := pep440.Parse(v.String())
	if err != nil {
		return false
	}
	return s.specs.Check(pv)
}

func (s Spec) String() string { return s.raw }

// Usage documents the accepted spec syntax, mirroring SimpleSpec.usage() in
// the original, surfaced in the CLI's error message for an argument that
// is neither a valid version nor a valid spec.
const Usage = `Qt versions can be specified as a comparison clause and a version number, such as:
"<6.2", ">=6.2", "!=6.2.4", "6.2.*"
Comparison clauses can be combined with commas, e.g. ">=5.13,<6"`
