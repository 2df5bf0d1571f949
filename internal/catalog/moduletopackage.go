package catalog

import "fmt"

// ModuleToPackage tracks, for each requested module name, the set of
// candidate package names that might satisfy it, and the reverse mapping
// used once a package is actually matched against the catalog. It mirrors
// the original's bidirectional ModuleToPackage helper, which the resolver
// drains as it matches candidates so that unmatched modules can be
// reported by name at the end.
type ModuleToPackage struct {
	modulesToPackages map[string][]string
	packagesToModules map[string]string
}

// NewModuleToPackage constructs an empty mapping.
func NewModuleToPackage() *ModuleToPackage {
	return &ModuleToPackage{
		modulesToPackages: map[string][]string{},
		packagesToModules: map[string]string{},
	}
}

// Add registers candidatePackages as the set of package names that could
// satisfy module.
func (m *ModuleToPackage) Add(module string, candidatePackages ...string) {
	m.modulesToPackages[module] = append(m.modulesToPackages[module], candidatePackages...)
	for _, pkg := range candidatePackages {
		m.packagesToModules[pkg] = module
	}
}

// HasPackage reports whether pkg is a candidate for any tracked module.
func (m *ModuleToPackage) HasPackage(pkg string) bool {
	_, ok := m.packagesToModules[pkg]
	return ok
}

// GetModule returns the module pkg is a candidate for.
func (m *ModuleToPackage) GetModule(pkg string) (string, bool) {
	mod, ok := m.packagesToModules[pkg]
	return mod, ok
}

// RemoveModuleForPackage marks the module owning pkg as resolved, removing
// it (and all its other candidate packages) from the unresolved set. It
// returns an error if pkg is not a tracked candidate, matching the
// original's KeyError-raising remove_module_for_package.
func (m *ModuleToPackage) RemoveModuleForPackage(pkg string) error {
	mod, ok := m.packagesToModules[pkg]
	if !ok {
		return fmt.Errorf("catalog: package %q is not a candidate for any requested module", pkg)
	}
	for _, p := range m.modulesToPackages[mod] {
		delete(m.packagesToModules, p)
	}
	delete(m.modulesToPackages, mod)
	return nil
}

// Len returns the number of modules still unresolved.
func (m *ModuleToPackage) Len() int { return len(m.modulesToPackages) }

// UnresolvedModules returns the names of modules with no matched package,
// used to build the NoPackageFound error message once resolution ends.
func (m *ModuleToPackage) UnresolvedModules() []string {
	out := make([]string, 0, len(m.modulesToPackages))
	for mod := range m.modulesToPackages {
		out = append(out, mod)
	}
	return out
}
