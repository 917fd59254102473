// Package atlas packs independently-sized images into a single texture atlas.
//
// The package is the core of atlaspack: it knows nothing about files,
// decoders, or caches. It takes a [Catalog] of decoded [Asset] values and
// produces a [Plan] describing where every asset lives in the atlas, then
// composites the pixels and builds the placement [Metadata].
//
// # Pipeline
//
// Packing runs strictly in sequence:
//
//  1. [EstimateSize] proposes a candidate atlas size from the total padded
//     area and the largest padded item.
//  2. [Shelf] places the area-sorted catalog into rows at that size.
//  3. [Pack] drives both: on failure it doubles the candidate (capped at the
//     configured maximum) and tries again, at most [MaxAttempts] times.
//  4. [Composite] copies every asset into a zeroed buffer of the accepted
//     size, and [BuildMetadata] produces the serialisable record.
//
// # Determinism
//
// The catalog is sorted once by descending area with a stable sort, so items
// of equal area keep their input order. Given the same catalog and the same
// [Settings], two runs produce identical placements.
//
// # Invariants
//
// Every accepted plan satisfies [Plan.Validate]: sprite rectangles expanded by
// the padding on all sides are pairwise disjoint and lie inside the atlas.
// There is no partial output. Either a full valid plan is returned, or an
// error with code PACKING_EXHAUSTED or EMPTY_INPUT.
//
// # Example
//
//	plan, err := atlas.Pack(catalog, atlas.DefaultSettings())
//	if err != nil {
//	    return err
//	}
//	img, err := atlas.Composite(plan, catalog)
//	if err != nil {
//	    return err
//	}
//	meta := atlas.BuildMetadata(plan, "atlas.png", false)
package atlas
