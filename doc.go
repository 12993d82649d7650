// Package zspatial is a spatial index and spatial join library built on
// z-order keys.
//
// Objects are decomposed into a few cells of a space-filling curve over
// their interleaved coordinate bits (see package space). Each cell is a
// z-value; an object is stored once per cell in an ordinary ordered key
// store (see package index) under the key (z, object id). Because an
// ancestor cell sorts immediately before all of its descendants, two
// indexes can be joined by a single forward merge of their key streams.
//
// # Quick Start
//
//	s, _ := space.New([]float64{0, 0}, []float64{1024, 1024}, []int{16, 16})
//
//	parks, _ := zspatial.NewSpatialIndex(s, tree.New())
//	lakes, _ := zspatial.NewSpatialIndex(s, tree.New())
//	_ = parks.Add(ctx, spatialobject.MustBox2D(1, 10, 20, 30, 40))
//	_ = lakes.Add(ctx, spatialobject.MustBox2D(7, 25, 35, 60, 80))
//
//	j, _ := zspatial.NewSpatialJoin(zspatial.Overlaps, zspatial.Exclude)
//	for p, err := range j.Pairs(ctx, parks, lakes) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(p.Left.ID(), p.Right.ID())
//	}
//
// # Join Semantics
//
// The join calls the Filter for every pair of objects that have nested or
// equal cells and reports the pairs it accepts. No overlapping pair is
// missed: the decomposition covers each object, so overlapping objects
// always have related cells. Cells are coarser than the objects, so the
// Filter removes the false candidates.
//
// An object pair can be related through several cell pairs. With Include
// every accepted cell pair is reported; with Exclude each object pair is
// reported once. Exclude remembers every reported pair by default;
// WithDuplicateWindow trades exactness for bounded memory.
//
// # Errors and Cancellation
//
// Joins stop at the first error. Store errors and context cancellation
// surfaced by cursors are returned unchanged; filter failures are wrapped
// in *FilterError. Closing an Iterator or breaking out of a Pairs loop
// releases all cursors.
//
// # Observability
//
// Counters (WithCounters) expose ancestor cache lookups and hits, cursor
// seeks and filter calls. A MetricsCollector and a *Logger receive a record
// of every Add, Remove and join.
package zspatial
