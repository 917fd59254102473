package atlas

import (
	"math"

	errs "github.com/matzehuels/atlaspack/pkg/errors"
)

// Defaults for [Settings].
const (
	DefaultMaxWidth  = 4096
	DefaultMaxHeight = 4096
	DefaultPadding   = 2

	// MinPowerOfTwo is the smallest power-of-two candidate side.
	MinPowerOfTwo = 32
)

// Aspect-ratio thresholds beyond which the non-power-of-two estimate is
// stretched along the long axis.
const (
	wideAspect = 1.5
	tallAspect = 0.667
)

// Settings controls sizing and packing.
type Settings struct {
	MaxWidth   int  `json:"max_width" toml:"max_width"`
	MaxHeight  int  `json:"max_height" toml:"max_height"`
	Padding    int  `json:"padding" toml:"padding"`
	PowerOfTwo bool `json:"power_of_two" toml:"power_of_two"`
}

// DefaultSettings returns a 4096x4096 power-of-two atlas with 2px padding.
func DefaultSettings() Settings {
	return Settings{
		MaxWidth:   DefaultMaxWidth,
		MaxHeight:  DefaultMaxHeight,
		Padding:    DefaultPadding,
		PowerOfTwo: true,
	}
}

// Validate reports settings that cannot produce any atlas.
func (s Settings) Validate() error {
	if s.MaxWidth <= 0 || s.MaxHeight <= 0 {
		return errs.New(errs.ErrCodeInvalidInput, "max size must be positive, got %dx%d", s.MaxWidth, s.MaxHeight)
	}
	if s.Padding < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "padding must not be negative, got %d", s.Padding)
	}
	return nil
}

// Size is an atlas width and height in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Estimate is the Size Estimator's proposal.
type Estimate struct {
	Size

	// TotalArea is the summed padded area of all assets.
	TotalArea int
	// MaxWidth and MaxHeight are the largest padded item dimensions.
	MaxWidth  int
	MaxHeight int

	// Insufficient is set when no candidate met the heuristic and the
	// configured maximum was used as a best-effort seed.
	Insufficient bool
}

// EstimateSize proposes a candidate atlas size for the catalog. The result is
// a seed for [Shelf], not a guarantee that the catalog fits.
func EstimateSize(c Catalog, s Settings) Estimate {
	var e Estimate
	for _, a := range c {
		pw, ph := a.Padded(s.Padding)
		e.TotalArea += pw * ph
		e.MaxWidth = max(e.MaxWidth, pw)
		e.MaxHeight = max(e.MaxHeight, ph)
	}

	if s.PowerOfTwo {
		if size, ok := powerOfTwoSize(e, s); ok {
			e.Size = size
			return e
		}
		e.Size = Size{Width: s.MaxWidth, Height: s.MaxHeight}
		e.Insufficient = true
		return e
	}

	e.Size = freeSize(e, s)
	return e
}

// powerOfTwoSize tries square candidates first, then every (w, h) pair with
// w as the outer loop.
func powerOfTwoSize(e Estimate, s Settings) (Size, bool) {
	var sides []int
	for side := MinPowerOfTwo; side <= min(s.MaxWidth, s.MaxHeight); side *= 2 {
		sides = append(sides, side)
	}

	for _, side := range sides {
		if side*side >= e.TotalArea {
			return Size{Width: side, Height: side}, true
		}
	}

	for _, w := range sides {
		for _, h := range sides {
			if w*h >= e.TotalArea && w >= e.MaxWidth && h >= e.MaxHeight {
				return Size{Width: w, Height: h}, true
			}
		}
	}
	return Size{}, false
}

func freeSize(e Estimate, s Settings) Size {
	side := int(math.Sqrt(float64(e.TotalArea)))
	w := max(side, e.MaxWidth)
	h := max(side, e.MaxHeight)

	aspect := 1.0
	if e.MaxHeight > 0 {
		aspect = float64(e.MaxWidth) / float64(e.MaxHeight)
	}
	switch {
	case aspect > wideAspect:
		w = min(int(float64(h)*aspect), s.MaxWidth)
	case aspect < tallAspect:
		h = min(int(float64(w)/aspect), s.MaxHeight)
	}

	return Size{Width: min(w, s.MaxWidth), Height: min(h, s.MaxHeight)}
}
