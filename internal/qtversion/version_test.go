package qtversion

import "testing"

func TestParseRoundTrip(t *testing.T) {
	cases := []string{"5.15.2", "6.2.0", "6.5-preview"}
	for _, s := range cases {
		v, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q): %v", s, err)
		}
		if got := v.String(); got != s {
			t.Errorf("Parse(%q).String() = %q, want %q", s, got, s)
		}
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "latest", "5.15", "5.15.2.1", "v5.15.2"} {
		if _, err := Parse(s); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", s)
		}
	}
}

func TestPermissive(t *testing.T) {
	cases := []struct {
		in   string
		want Version
	}{
		{"5.15.2", Version{Major: 5, Minor: 15, Patch: 2}},
		{"1.33-202102101246", Version{Major: 1, Minor: 33, Build: "202102101246"}},
		{"2020-05-19-1", Version{Major: 2020, Build: "05-19-1"}},
		{"5", Version{Major: 5}},
	}
	for _, c := range cases {
		got, err := Permissive(c.in)
		if err != nil {
			t.Fatalf("Permissive(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("Permissive(%q) = %+v, want %+v", c.in, got, c.want)
		}
	}
}

func TestCompare(t *testing.T) {
	a, _ := Parse("5.15.2")
	b, _ := Parse("6.2.0")
	if !a.Less(b) {
		t.Errorf("expected 5.15.2 < 6.2.0")
	}
	if b.Less(a) {
		t.Errorf("expected 6.2.0 not < 5.15.2")
	}
	if !a.Equal(a) {
		t.Errorf("expected version to equal itself")
	}
}

func TestComparePreviewSortsBelowRelease(t *testing.T) {
	preview, _ := Parse("6.3-preview")
	release, _ := Parse("6.3.0")
	if !preview.Less(release) {
		t.Errorf("expected 6.3-preview < 6.3.0")
	}
	if release.Less(preview) {
		t.Errorf("expected 6.3.0 not < 6.3-preview")
	}
	if preview.Equal(release) {
		t.Errorf("expected 6.3-preview to not equal 6.3.0")
	}
}

func TestSpecMatch(t *testing.T) {
	spec, err := ParseSpec(">=5.13,<6")
	if err != nil {
		t.Fatal(err)
	}
	in, _ := Parse("5.15.2")
	out, _ := Parse("6.2.0")
	if !spec.Match(in) {
		t.Errorf("expected 5.15.2 to match >=5.13,<6")
	}
	if spec.Match(out) {
		t.Errorf("expected 6.2.0 not to match >=5.13,<6")
	}
}

func TestEmptySpecMatchesEverything(t *testing.T) {
	spec, err := ParseSpec("")
	if err != nil {
		t.Fatal(err)
	}
	v, _ := Parse("5.15.2")
	if !spec.Match(v) {
		t.Errorf("expected empty spec to match any version")
	}
}
