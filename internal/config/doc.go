// SPDX-License-Identifier: MPL-2.0

// Package config resolves bootstrap-loader settings using Viper with CUE as the
// file format.
//
// Every key is looked up in the same order: an explicit property (launcher
// option or CLI --property), then the BOOTSTRAP_LOADER_* environment, then an
// optional bootstrap-loader.cue file, then built-in defaults. The config file
// is validated against an embedded #Config schema (config_schema.cue) before
// it is merged.
package config
