// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

// ParseTOML parses a manifest written in TOML:
//
//	dependencies = ["group:name:version"]
//
//	[[repositories]]
//	id = "central"
//	url = "https://repo.maven.apache.org/maven2/"
//
// The document is decoded strictly and then validated through the same schema
// as JSON manifests.
func ParseTOML(data []byte) (*Manifest, error) {
	return parseTOMLNamed(data, "<input>")
}

func parseTOMLNamed(data []byte, source string) (*Manifest, error) {
	var doc document
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, &MalformedManifestError{Source: source, Err: err}
	}

	// Re-encode as JSON so TOML and JSON manifests share one validation path.
	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("internal error: re-encoding manifest: %w", err)
	}
	return parseNamed(normalized, source)
}
