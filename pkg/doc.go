// Package pkg provides the libraries behind atlaspack, a texture atlas
// packer.
//
// # Overview
//
// atlaspack combines many small images into one atlas image plus a JSON
// document recording where each source image landed. The pkg directory is
// organized as:
//
//  1. [atlas] - Sizing, shelf packing, retries, compositing, metadata
//  2. [source] - Image discovery and decoding into a catalog
//  3. [sink] - Atomic PNG/JSON output and S3 publishing
//  4. [cache] - Plan cache (file, Redis, null)
//  5. [pipeline] - Orchestration (load → pack → composite → write)
//
// # Architecture
//
// The typical data flow:
//
//	image directory
//	       ↓
//	  [source] package (decode to NRGBA, derive names)
//	       ↓
//	  [atlas] package (estimate → shelf ⇄ retry → composite)
//	       ↓
//	  [sink] package (atlas.png + atlas.json, optional upload)
//
// # Quick Start
//
//	loaded, _ := source.NewLoader(osfs.New("."), nil).Load(ctx, "sprites", true)
//	plan, err := atlas.Pack(loaded.Catalog, atlas.DefaultSettings())
//	if err != nil {
//	    return err
//	}
//	img, _ := atlas.Composite(plan, loaded.Catalog)
//	meta := atlas.BuildMetadata(plan, "atlas.png", true)
//	_, err = sink.WriteAtlas(osfs.New("."), "build", "atlas", img, meta)
package pkg
