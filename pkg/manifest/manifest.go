// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bootstrap-loader/bootstrap-loader/pkg/artifact"
	"github.com/bootstrap-loader/bootstrap-loader/pkg/cueutil"
)

// DefaultFileName is the conventional manifest file name.
const DefaultFileName = "bootstrap-dependencies.json"

//go:embed manifest_schema.cue
var manifestSchema []byte

// ErrMalformedManifest is the sentinel error wrapped by MalformedManifestError.
var ErrMalformedManifest = errors.New("malformed manifest")

type (
	// Manifest is the parsed declaration: root coordinates in declared order
	// and the repositories to consult, in preference order.
	Manifest struct {
		Dependencies []artifact.Coordinate
		Repositories []artifact.Repository
	}

	// MalformedManifestError is returned for any manifest that does not match
	// the expected document shape.
	MalformedManifestError struct {
		// Source names the document (file name or "<input>").
		Source string
		// Err is the underlying validation failure.
		Err error
	}

	// document is the decoded wire shape shared by every supported syntax.
	document struct {
		Dependencies []string              `json:"dependencies,omitempty" toml:"dependencies"`
		Repositories []artifact.Repository `json:"repositories,omitempty" toml:"repositories"`
	}
)

// Error implements the error interface.
func (e *MalformedManifestError) Error() string {
	return fmt.Sprintf("malformed manifest %s: %v", e.Source, e.Err)
}

// Unwrap returns ErrMalformedManifest and the underlying cause so both can be
// matched with errors.Is.
func (e *MalformedManifestError) Unwrap() []error {
	return []error{ErrMalformedManifest, e.Err}
}

// Parse parses a JSON (or CUE) manifest document.
func Parse(data []byte) (*Manifest, error) {
	return parseNamed(data, "<input>")
}

// Load reads and parses the manifest at path. The syntax is chosen from the
// file extension: ".toml" is TOML, anything else is JSON/CUE.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	name := filepath.Base(path)
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return parseTOMLNamed(data, name)
	}
	return parseNamed(data, name)
}

func parseNamed(data []byte, source string) (*Manifest, error) {
	result, err := cueutil.ParseAndDecode[document](manifestSchema, data, "#Manifest", cueutil.WithFilename(source))
	if err != nil {
		return nil, &MalformedManifestError{Source: source, Err: err}
	}
	return result.Value.build(source)
}

// build converts the decoded document into a Manifest, enforcing the rules the
// schema cannot express.
func (d *document) build(source string) (*Manifest, error) {
	m := &Manifest{
		Dependencies: make([]artifact.Coordinate, 0, len(d.Dependencies)),
		Repositories: make([]artifact.Repository, 0, len(d.Repositories)),
	}

	for i, raw := range d.Dependencies {
		coord, err := artifact.ParseCoordinate(raw)
		if err != nil {
			return nil, &MalformedManifestError{Source: source, Err: fmt.Errorf("dependencies[%d]: %w", i, err)}
		}
		m.Dependencies = append(m.Dependencies, coord)
	}

	seen := make(map[string]int, len(d.Repositories))
	for i, repo := range d.Repositories {
		repo.ID = strings.TrimSpace(repo.ID)
		repo.URL = strings.TrimSpace(repo.URL)
		if err := repo.Validate(); err != nil {
			return nil, &MalformedManifestError{Source: source, Err: fmt.Errorf("repositories[%d]: %w", i, err)}
		}
		if first, dup := seen[repo.ID]; dup {
			return nil, &MalformedManifestError{
				Source: source,
				Err:    fmt.Errorf("repositories[%d]: duplicate id %q (same as repositories[%d])", i, repo.ID, first),
			}
		}
		seen[repo.ID] = i
		m.Repositories = append(m.Repositories, repo)
	}

	return m, nil
}

// EffectiveRepositories returns the declared repositories, or the single
// default repository when none are declared.
func (m *Manifest) EffectiveRepositories() []artifact.Repository {
	if len(m.Repositories) == 0 {
		return []artifact.Repository{artifact.DefaultRepository()}
	}
	out := make([]artifact.Repository, len(m.Repositories))
	copy(out, m.Repositories)
	return out
}
