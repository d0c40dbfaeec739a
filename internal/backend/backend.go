// Copyright (c) 2026 Michael D Henderson. All rights reserved.

// Package backend implements the capability-keyed registry of spec.md §9:
// "Backends are loaded by name; the mechanism is deliberately abstract
// here — a capability-keyed registry populated at startup." Only the part
// of a backend description the core pipeline owns lives here — name,
// required placeholders, output file extension. Skeleton templates, the
// compiler, and the equivalency Runner stay out of scope (spec.md §1, §6);
// Descriptor has no field for any of them.
package backend

import (
	"fmt"
	"io/fs"
	"sort"

	"gopkg.in/yaml.v3"
)

// Descriptor is the addressable metadata for one code-generation target,
// per spec.md §6's "Backend descriptor": a named set of placeholders plus
// an output extension. postprocess.Substitute consults Placeholders to
// check that a skeleton contains every required @backend.<name>
// directive; the Runner
// interface a real backend plugs in for the equivalency harness is
// intentionally absent — spec.md §1 puts the test harness out of scope.
type Descriptor struct {
	Name         string   `yaml:"name"`
	Placeholders []string `yaml:"placeholders"`
	OutputExt    string   `yaml:"output_ext"`
}

// RequiresPlaceholder reports whether name is one of d's required
// placeholders.
func (d Descriptor) RequiresPlaceholder(name string) bool {
	for _, p := range d.Placeholders {
		if p == name {
			return true
		}
	}
	return false
}

// Registry holds every known Descriptor, keyed by name.
type Registry struct {
	byName map[string]Descriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: map[string]Descriptor{}}
}

// Register adds or replaces a Descriptor.
func (r *Registry) Register(d Descriptor) {
	r.byName[d.Name] = d
}

// Lookup returns the Descriptor for name, or (Descriptor{}, false) if the
// backend is unknown — the BackendError of spec.md §7 "unknown backend".
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Names returns every registered backend name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// descriptorFile is the on-disk shape of a backend descriptor document:
// a list under a top-level "backends" key, so one file can register
// several targets at once.
type descriptorFile struct {
	Backends []Descriptor `yaml:"backends"`
}

// Load reads backend descriptors from a YAML document at path within
// fsys and registers each of them. A malformed document or a descriptor
// missing a name is a BackendError.
func Load(fsys fs.FS, path string) (*Registry, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("backend: read %s: %w", path, err)
	}
	var doc descriptorFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("backend: parse %s: %w", path, err)
	}
	reg := NewRegistry()
	for _, d := range doc.Backends {
		if d.Name == "" {
			return nil, fmt.Errorf("backend: %s: descriptor missing name", path)
		}
		reg.Register(d)
	}
	return reg, nil
}

// Default returns the built-in registry shipped with polygen itself: the
// "go" backend the emitter's GoBackend (internal/emit) targets. Load
// returns only the descriptors in its file; cmd/polygen registers those
// over this registry, so "polygen generate -b go" works with no config
// present and a loaded "go" descriptor replaces this one.
func Default() *Registry {
	reg := NewRegistry()
	reg.Register(Descriptor{
		Name: "go",
		Placeholders: []string{
			"header",
			"state_type",
			"rules",
			"entrypoint",
		},
		OutputExt: ".go",
	})
	return reg
}
