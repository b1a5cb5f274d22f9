// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/bootstrap-loader/bootstrap-loader/pkg/artifact"
)

// Generate renders a canonical manifest document. Dependencies are
// de-duplicated and sorted so the output is stable across builds; repository
// order is preserved because it expresses preference.
//
// The returned bytes are always accepted by Parse.
func Generate(dependencies []string, repositories []artifact.Repository) ([]byte, error) {
	doc := document{
		Dependencies: make([]string, 0, len(dependencies)),
		Repositories: make([]artifact.Repository, 0, len(repositories)),
	}

	for _, raw := range dependencies {
		coord, err := artifact.ParseCoordinate(raw)
		if err != nil {
			return nil, err
		}
		doc.Dependencies = append(doc.Dependencies, coord.String())
	}
	slices.Sort(doc.Dependencies)
	doc.Dependencies = slices.Compact(doc.Dependencies)

	seen := make(map[string]bool, len(repositories))
	for _, repo := range repositories {
		if err := repo.Validate(); err != nil {
			return nil, err
		}
		if seen[repo.ID] {
			return nil, fmt.Errorf("duplicate repository id %q", repo.ID)
		}
		seen[repo.ID] = true
		doc.Repositories = append(doc.Repositories, repo)
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	return append(out, '\n'), nil
}

// Encode renders m in the canonical document form without reordering.
func (m *Manifest) Encode() ([]byte, error) {
	doc := document{
		Dependencies: make([]string, 0, len(m.Dependencies)),
		Repositories: m.Repositories,
	}
	for _, c := range m.Dependencies {
		doc.Dependencies = append(doc.Dependencies, c.String())
	}
	if doc.Repositories == nil {
		doc.Repositories = []artifact.Repository{}
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	return append(out, '\n'), nil
}
