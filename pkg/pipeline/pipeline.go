// Package pipeline runs the complete load → pack → composite → write
// sequence that turns a directory of images into an atlas.
//
// Both the pack and plan commands go through a [Runner] so that caching,
// logging and observability hooks behave the same for every entry point.
//
// # Usage
//
//	runner := pipeline.NewRunner(osfs.New("."), cache, nil, logger)
//	opts := pipeline.DefaultOptions()
//	opts.InputDir = "sprites"
//	opts.OutputDir = "build"
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Files.Image)
//
// A dry run loads and packs without writing:
//
//	result, err := runner.Plan(ctx, opts)
package pipeline

import (
	"time"

	"github.com/matzehuels/atlaspack/pkg/atlas"
	"github.com/matzehuels/atlaspack/pkg/cache"
	errs "github.com/matzehuels/atlaspack/pkg/errors"
	"github.com/matzehuels/atlaspack/pkg/sink"
	"github.com/matzehuels/atlaspack/pkg/source"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and config files
// =============================================================================

// DefaultName is the base name of the written files.
const DefaultName = "atlas"

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a pipeline run. It decodes from
// TOML config files (see [LoadConfig]).
//
// Start from [DefaultOptions]: the zero value means padding 0 and free
// (non power-of-two) sizing, which is valid but rarely intended.
type Options struct {
	// Input/output
	InputDir  string `toml:"input" json:"input"`
	OutputDir string `toml:"output" json:"output"`
	Name      string `toml:"name" json:"name"`
	Recursive bool   `toml:"recursive" json:"recursive"`

	// Packing
	MaxWidth   int  `toml:"max_width" json:"max_width"`
	MaxHeight  int  `toml:"max_height" json:"max_height"`
	Padding    int  `toml:"padding" json:"padding"`
	PowerOfTwo bool `toml:"power_of_two" json:"power_of_two"`

	// Runtime
	NoCache bool   `toml:"no_cache" json:"no_cache"`
	Publish string `toml:"publish" json:"publish,omitempty"` // s3://bucket[/prefix]
}

// DefaultOptions returns the options a bare "atlaspack pack in out" uses.
func DefaultOptions() Options {
	s := atlas.DefaultSettings()
	return Options{
		Name:       DefaultName,
		MaxWidth:   s.MaxWidth,
		MaxHeight:  s.MaxHeight,
		Padding:    s.Padding,
		PowerOfTwo: s.PowerOfTwo,
	}
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Plan is the accepted placement.
	Plan *atlas.Plan

	// Metadata is the document written next to the atlas image.
	Metadata atlas.Metadata

	// Files are the written outputs. Empty for a dry run.
	Files sink.Files

	// Published holds s3:// URIs when Options.Publish was set.
	Published []string

	// Skipped lists images that could not be decoded.
	Skipped []source.Skipped

	// Attempts lists every shelf run. Empty when the plan came from cache.
	Attempts []atlas.Attempt

	// Estimate is the size estimator's proposal. Zero on a cache hit.
	Estimate atlas.Estimate

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Images        int
	Skipped       int
	Fill          float64 // sprite area / atlas area
	LoadTime      time.Duration
	PackTime      time.Duration
	CompositeTime time.Duration
	WriteTime     time.Duration
	PublishTime   time.Duration
}

// CacheInfo tracks cache use for the pack stage.
type CacheInfo struct {
	Key     string
	PlanHit bool
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks the options for a full run and fills an
// empty Name and zero maxima with their defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if err := o.ValidateForPlan(); err != nil {
		return err
	}
	if o.OutputDir == "" {
		return errs.New(errs.ErrCodeInvalidPath, "output directory is required")
	}
	if err := errs.ValidatePath(o.OutputDir); err != nil {
		return err
	}
	if o.Publish != "" {
		if err := errs.ValidateS3URL(o.Publish); err != nil {
			return err
		}
	}
	return nil
}

// ValidateForPlan checks only what a dry run needs.
func (o *Options) ValidateForPlan() error {
	if o.InputDir == "" {
		return errs.New(errs.ErrCodeInvalidPath, "input directory is required")
	}
	if err := errs.ValidatePath(o.InputDir); err != nil {
		return err
	}

	if o.Name == "" {
		o.Name = DefaultName
	}
	if o.MaxWidth == 0 {
		o.MaxWidth = atlas.DefaultMaxWidth
	}
	if o.MaxHeight == 0 {
		o.MaxHeight = atlas.DefaultMaxHeight
	}
	if err := errs.ValidateAtlasName(o.Name); err != nil {
		return err
	}
	return o.Settings().Validate()
}

// Settings returns the packing settings.
func (o *Options) Settings() atlas.Settings {
	return atlas.Settings{
		MaxWidth:   o.MaxWidth,
		MaxHeight:  o.MaxHeight,
		Padding:    o.Padding,
		PowerOfTwo: o.PowerOfTwo,
	}
}

// PlanKeyOpts returns cache key options for the pack stage.
func (o *Options) PlanKeyOpts() cache.PlanKeyOpts {
	return cache.PlanKeyOpts{
		MaxWidth:   o.MaxWidth,
		MaxHeight:  o.MaxHeight,
		Padding:    o.Padding,
		PowerOfTwo: o.PowerOfTwo,
	}
}
