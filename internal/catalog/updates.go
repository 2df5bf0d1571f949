// Package catalog parses Updates.xml, the package catalog download.qt.io
// publishes alongside each repository folder, and computes dependency
// closures over it.
package catalog

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/xerrors"

	"github.com/goaqt/aqt/internal/qtversion"
)

// PackageUpdate is one <PackageUpdate> row from Updates.xml.
type PackageUpdate struct {
	Name                 string
	DisplayName          string
	Description          string
	ReleaseDate          string
	FullVersion          string
	Dependencies         []string
	AutoDependOn         []string
	DownloadableArchives []string
	Default              bool
	Virtual              bool
}

// Version parses FullVersion permissively, the way the original wraps
// Version.permissive(full_version) in a cached property.
func (p PackageUpdate) Version() (qtversion.Version, error) {
	return qtversion.Permissive(p.FullVersion)
}

// Arch returns the architecture suffix of the package name, i.e. the
// component after the last dot (e.g. "qt.qt6.620.gcc_64" -> "gcc_64").
func (p PackageUpdate) Arch() string {
	idx := strings.LastIndex(p.Name, ".")
	if idx == -1 {
		return p.Name
	}
	return p.Name[idx+1:]
}

// IsBasePackage reports whether this package is one of the two "base"
// package name shapes (with or without the "qt<major>" component), which
// carry the non-module parts of a Qt installation.
func (p PackageUpdate) IsBasePackage(major int, verStr, arch string) bool {
	return p.Name == fmt.Sprintf("qt.qt%d.%s.%s", major, verStr, arch) ||
		p.Name == fmt.Sprintf("qt.%s.%s", verStr, arch)
}

// Updates is the parsed contents of one Updates.xml document.
type Updates struct {
	PackageUpdates []PackageUpdate
}

func splitCSV(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func childText(el *etree.Element, tag string) string {
	c := el.SelectElement(tag)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Text())
}

func childBool(el *etree.Element, tag string) bool {
	return strings.EqualFold(childText(el, tag), "true")
}

// Parse parses raw Updates.xml content. Entity expansion is not performed:
// etree's tokenizer has no DTD/external-entity support to opt out of,
// giving the same "untrusted XML in, no entity bombs out" property the
// original gets from defusedxml.
func Parse(xmlText string) (*Updates, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(xmlText); err != nil {
		return nil, xerrors.Errorf("catalog: parsing Updates.xml: %w", err)
	}
	root := doc.SelectElement("Updates")
	if root == nil {
		return nil, fmt.Errorf("catalog: Updates.xml has no <Updates> root element")
	}
	var updates Updates
	for _, pu := range root.SelectElements("PackageUpdate") {
		updates.PackageUpdates = append(updates.PackageUpdates, PackageUpdate{
			Name:                 childText(pu, "Name"),
			DisplayName:          childText(pu, "DisplayName"),
			Description:          childText(pu, "Description"),
			ReleaseDate:          childText(pu, "ReleaseDate"),
			FullVersion:          childText(pu, "Version"),
			Dependencies:         splitCSV(childText(pu, "Dependencies")),
			AutoDependOn:         splitCSV(childText(pu, "AutoDependOn")),
			DownloadableArchives: splitCSV(childText(pu, "DownloadableArchives")),
			Default:              childBool(pu, "Default"),
			Virtual:              childBool(pu, "Virtual"),
		})
	}
	return &updates, nil
}

// Get returns the PackageUpdate named target, if any.
func (u *Updates) Get(target string) (PackageUpdate, bool) {
	for _, pu := range u.PackageUpdates {
		if pu.Name == target {
			return pu, true
		}
	}
	return PackageUpdate{}, false
}

// GetDepends computes the transitive dependency closure of target via a
// depth-first search over Dependencies, matching Updates.get_depends'
// filo-stack traversal.
func (u *Updates) GetDepends(target string) []string {
	visited := map[string]bool{}
	listed := map[string]bool{}
	var order []string
	stack := []string{target}
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[name] {
			continue
		}
		visited[name] = true
		pu, ok := u.Get(name)
		if !ok {
			continue
		}
		for _, dep := range pu.Dependencies {
			if !visited[dep] {
				stack = append(stack, dep)
				if !listed[dep] {
					listed[dep] = true
					order = append(order, dep)
				}
			}
		}
	}
	return order
}
