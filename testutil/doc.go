// Package testutil provides testing utilities for zspatial.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random spatial objects, filling
// indexes, computing the expected result of a join by brute force, and
// wrapping indexes to count or fail cursor operations.
//
// # Random Objects
//
//	rng := testutil.NewRNG(seed)
//	boxes := rng.Boxes(100, 1, 0, 1024, 64)
//
// # Expected Results
//
//	want := testutil.BruteForceJoin(left, right, spatialobject.Overlap)
//
// # Fault Injection
//
//	faulty := testutil.NewFaultyIndex(idx, 10) // 11th cursor operation fails
package testutil
