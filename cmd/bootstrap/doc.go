// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the bootstrap-loader command-line interface.
//
// The CLI is a thin layer over pkg/bootstrap: it turns flags into launcher
// options, loads manifests from arbitrary paths, and exposes the cache and
// the diagnostic catalogue for inspection.
package cmd
