// SPDX-License-Identifier: MPL-2.0

// Package artifact defines the value types shared by every stage of the
// bootstrap pipeline: coordinates, repositories, dependency edges and the
// resolved closure handed to the isolation context.
//
// # Coordinates
//
// A [Coordinate] is the (group, name, version) triple that identifies one
// artifact. Its textual form is "group:name:version"; [ParseCoordinate]
// rejects anything that does not have exactly three non-empty components.
//
// # Closure
//
// A [Closure] is the ordered, deduplicated list of materialized artifacts
// produced by the resolver. Order reflects resolution preference: earlier
// entries win symbol lookups in the isolation context.
package artifact
