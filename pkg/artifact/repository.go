// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	// DefaultRepositoryID is the id of the repository used when a manifest declares none.
	DefaultRepositoryID = "central"
	// DefaultRepositoryURL is the base URL of the default repository.
	DefaultRepositoryURL = "https://repo.maven.apache.org/maven2/"
)

// ErrInvalidRepository is the sentinel error wrapped by InvalidRepositoryError.
var ErrInvalidRepository = errors.New("invalid repository")

type (
	// Repository is a named remote source of artifacts addressed by a base URL.
	Repository struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}

	// InvalidRepositoryError is returned when a Repository lacks an id or url,
	// or when the url cannot be parsed.
	InvalidRepositoryError struct {
		Value  Repository
		Reason string
	}
)

// DefaultRepository returns the repository consulted when none are declared.
func DefaultRepository() Repository {
	return Repository{ID: DefaultRepositoryID, URL: DefaultRepositoryURL}
}

// Error implements the error interface.
func (e *InvalidRepositoryError) Error() string {
	return fmt.Sprintf("invalid repository {id: %q, url: %q}: %s", e.Value.ID, e.Value.URL, e.Reason)
}

// Unwrap returns ErrInvalidRepository so callers can use errors.Is for programmatic detection.
func (e *InvalidRepositoryError) Unwrap() error { return ErrInvalidRepository }

// Validate returns nil if the repository has a non-empty id and an absolute URL.
func (r Repository) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return &InvalidRepositoryError{Value: r, Reason: "id is required"}
	}
	if strings.TrimSpace(r.URL) == "" {
		return &InvalidRepositoryError{Value: r, Reason: "url is required"}
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return &InvalidRepositoryError{Value: r, Reason: err.Error()}
	}
	if u.Scheme == "" {
		return &InvalidRepositoryError{Value: r, Reason: "url must be absolute (http, https, file or s3)"}
	}
	return nil
}

// Scheme returns the lower-cased URL scheme, or "" if the URL does not parse.
func (r Repository) Scheme() string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Scheme)
}

// String returns "id (url)".
func (r Repository) String() string {
	return r.ID + " (" + r.URL + ")"
}
