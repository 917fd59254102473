package atlas

import (
	errs "github.com/matzehuels/atlaspack/pkg/errors"
)

// MaxAttempts bounds the number of Shelf runs per pack.
const MaxAttempts = 3

// Attempt describes one Shelf run at a candidate size.
type Attempt struct {
	Size
	Index int  // 1-based
	OK    bool // whether every asset fit
}

// PackOption configures [Pack].
type PackOption func(*packer)

type packer struct {
	onEstimate func(Estimate)
	onAttempt  func(Attempt)
}

// WithEstimateHook is called once with the Size Estimator's proposal.
func WithEstimateHook(fn func(Estimate)) PackOption {
	return func(p *packer) { p.onEstimate = fn }
}

// WithAttemptHook is called after every Shelf run, successful or not.
func WithAttemptHook(fn func(Attempt)) PackOption {
	return func(p *packer) { p.onAttempt = fn }
}

// Pack sizes and packs the catalog. On a failed attempt it doubles the
// candidate in each dimension, capped at the configured maximum, and retries
// until [MaxAttempts] runs have been made or the size stops growing.
//
// The catalog is not modified.
func Pack(c Catalog, s Settings, opts ...PackOption) (*Plan, error) {
	var p packer
	for _, opt := range opts {
		opt(&p)
	}

	if len(c) == 0 {
		return nil, errs.New(errs.ErrCodeEmptyInput, "no images to pack")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	sorted := c.SortedByArea()
	est := EstimateSize(sorted, s)
	if p.onEstimate != nil {
		p.onEstimate(est)
	}

	size := est.Size
	for attempt := 1; ; attempt++ {
		sprites, ok := Shelf(sorted, size, s.Padding)
		if p.onAttempt != nil {
			p.onAttempt(Attempt{Size: size, Index: attempt, OK: ok})
		}
		if ok {
			return &Plan{
				Width:      size.Width,
				Height:     size.Height,
				Padding:    s.Padding,
				PowerOfTwo: s.PowerOfTwo,
				Sprites:    sprites,
				Attempts:   attempt,
			}, nil
		}

		if attempt >= MaxAttempts {
			return nil, errs.New(errs.ErrCodePackingExhausted,
				"%d images do not fit after %d attempts (last %dx%d)", len(c), attempt, size.Width, size.Height)
		}

		next := grow(size, s)
		if next == size {
			return nil, errs.New(errs.ErrCodePackingExhausted,
				"%d images do not fit in the maximum size %dx%d", len(c), size.Width, size.Height)
		}
		size = next
	}
}

func grow(size Size, s Settings) Size {
	return Size{
		Width:  min(size.Width*2, s.MaxWidth),
		Height: min(size.Height*2, s.MaxHeight),
	}
}
