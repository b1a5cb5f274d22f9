// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides the shared CUE parsing flow used by the manifest
// and configuration loaders:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify with schema
//  3. Validate and decode to Go struct
//
// Because JSON is a subset of CUE, the same flow validates JSON documents
// such as the embedded dependency manifest.
//
// # Usage
//
//	//go:embed manifest_schema.cue
//	var schemaBytes []byte
//
//	result, err := cueutil.ParseAndDecode[document](
//	    schemaBytes,
//	    data,
//	    "#Manifest",
//	    cueutil.WithFilename("bootstrap-dependencies.json"),
//	)
package cueutil
