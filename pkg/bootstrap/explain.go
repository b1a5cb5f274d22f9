// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"context"
	"errors"
	"io/fs"

	"github.com/bootstrap-loader/bootstrap-loader/internal/cache"
	"github.com/bootstrap-loader/bootstrap-loader/internal/config"
	"github.com/bootstrap-loader/bootstrap-loader/internal/issue"
	"github.com/bootstrap-loader/bootstrap-loader/internal/resolver"
	"github.com/bootstrap-loader/bootstrap-loader/internal/transport"
	"github.com/bootstrap-loader/bootstrap-loader/pkg/isolation"
	"github.com/bootstrap-loader/bootstrap-loader/pkg/manifest"
)

// kinds maps sentinels to catalog entries. Order matters: an unresolvable
// artifact also wraps the per-repository not-found answers, and a deadline
// also counts as a transport error.
var kinds = []struct {
	sentinel error
	id       issue.Id
}{
	{context.DeadlineExceeded, issue.DeadlineExceededId},
	{manifest.ErrMalformedManifest, issue.MalformedManifestId},
	{resolver.ErrUnresolvableArtifact, issue.UnresolvableArtifactId},
	{resolver.ErrResolverLimitExceeded, issue.ResolverLimitExceededId},
	{resolver.ErrInvalidDescriptor, issue.InvalidDescriptorId},
	{cache.ErrIntegrity, issue.IntegrityErrorId},
	{transport.ErrTransport, issue.TransportErrorId},
	{isolation.ErrSymbolNotFound, issue.SymbolNotFoundId},
	{isolation.ErrInstantiation, issue.InstantiationErrorId},
	{isolation.ErrOpen, issue.LibraryOpenFailedId},
	{ErrNotAnApplication, issue.NotAnApplicationId},
	{config.ErrInvalidConfig, issue.ConfigLoadFailedId},
	{config.ErrUnknownProperty, issue.ConfigLoadFailedId},
	{config.ErrInvalidLoadOptions, issue.ConfigLoadFailedId},
	{fs.ErrPermission, issue.CacheAccessFailedId},
}

// configOperations are the operations under which internal/config reports
// file and decoding failures that carry no sentinel.
var configOperations = map[string]bool{
	"load configuration":     true,
	"decode configuration":   true,
	"validate configuration": true,
	"apply property":         true,
}

// Explain returns the name of the help topic for err, as accepted by
// "bootstrap-loader explain", or "" when err is not a bootstrap failure.
func Explain(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return issue.Get(k.id).Name()
		}
	}
	var ae *issue.ActionableError
	if errors.As(err, &ae) && configOperations[ae.Operation] {
		return issue.Get(issue.ConfigLoadFailedId).Name()
	}
	return ""
}
