// SPDX-License-Identifier: MPL-2.0

// Package resolver expands the root coordinates of a manifest into an
// ordered, deduplicated closure of cached artifacts.
//
// Resolution is a breadth-first walk seeded with the roots in declared order.
// The first coordinate dequeued for a (group, name) pair wins; later ones are
// dropped, so the nearest declaration always wins and ties go to declaration
// order. Only compile-scope, non-optional edges are followed.
//
// Each BFS level is chosen sequentially and then staged through the cache on a
// bounded worker pool, so the emitted closure is identical whatever the
// number of workers.
package resolver
