// Package index defines the ordered key store a spatial index is built on.
//
// An Index holds records sorted by Key. Spatial joins read it exclusively
// through Cursor, a positioned forward-only reader with two operations:
// Seek to the lower bound of a key, and Next.
//
// Implementations:
//
//   - tree: a B-tree, the default for mixed inserts and removals
//   - sortedarray: a sorted slice, compact for bulk-loaded data
//   - throttle: wraps another Index and rate-limits its cursors
//
// Package indextest holds the conformance suite every implementation runs.
package index
