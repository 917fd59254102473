package atlas

import (
	"image"

	errs "github.com/matzehuels/atlaspack/pkg/errors"
)

// Sprite is one packed asset's placement. X and Y are the top-left corner in
// atlas pixels, excluding padding.
type Sprite struct {
	Name   string `json:"name"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`

	// Rotated is reserved for rotation-aware packing and is always false.
	Rotated bool   `json:"rotated"`
	Path    string `json:"original_path"`
}

// Rect returns the unpadded sprite rectangle.
func (s Sprite) Rect() image.Rectangle {
	return image.Rect(s.X, s.Y, s.X+s.Width, s.Y+s.Height)
}

// Plan is an accepted packing: the atlas size, the settings it was packed
// with, and every sprite in packing order.
type Plan struct {
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	Padding    int      `json:"padding"`
	PowerOfTwo bool     `json:"power_of_two"`
	Sprites    []Sprite `json:"sprites"`

	// Attempts is the number of Shelf runs it took to accept this size.
	Attempts int `json:"attempts"`
}

// Size returns the atlas dimensions.
func (p *Plan) Size() Size { return Size{Width: p.Width, Height: p.Height} }

// Bounds returns the atlas rectangle.
func (p *Plan) Bounds() image.Rectangle { return image.Rect(0, 0, p.Width, p.Height) }

// Validate checks the no-overlap and containment invariants.
func (p *Plan) Validate() error {
	bounds := p.Bounds()
	padded := make([]image.Rectangle, len(p.Sprites))

	for i, s := range p.Sprites {
		if s.Width <= 0 || s.Height <= 0 {
			return errs.New(errs.ErrCodeInvalidPlan, "sprite %q has non-positive size", s.Name)
		}
		r := s.Rect().Inset(-p.Padding)
		if !r.In(bounds) {
			return errs.New(errs.ErrCodeInvalidPlan, "sprite %q at %v exceeds atlas %dx%d", s.Name, r, p.Width, p.Height)
		}
		padded[i] = r
	}

	for i := range padded {
		for j := i + 1; j < len(padded); j++ {
			if padded[i].Overlaps(padded[j]) {
				return errs.New(errs.ErrCodeInvalidPlan, "sprites %q and %q overlap", p.Sprites[i].Name, p.Sprites[j].Name)
			}
		}
	}
	return nil
}

// Covers checks that the plan places every catalog asset exactly once, at
// the asset's own size.
func (p *Plan) Covers(c Catalog) error {
	if len(p.Sprites) != len(c) {
		return errs.New(errs.ErrCodeInvalidPlan, "plan places %d sprites for %d images", len(p.Sprites), len(c))
	}

	byName := make(map[string]Asset, len(c))
	for _, a := range c {
		byName[a.Name] = a
	}

	seen := make(map[string]bool, len(p.Sprites))
	for _, s := range p.Sprites {
		if seen[s.Name] {
			return errs.New(errs.ErrCodeInvalidPlan, "sprite %q placed more than once", s.Name)
		}
		seen[s.Name] = true

		a, ok := byName[s.Name]
		if !ok {
			return errs.New(errs.ErrCodeInvalidPlan, "sprite %q has no source image", s.Name)
		}
		if a.Width != s.Width || a.Height != s.Height {
			return errs.New(errs.ErrCodeInvalidPlan,
				"sprite %q is %dx%d but source is %dx%d", s.Name, s.Width, s.Height, a.Width, a.Height)
		}
	}
	return nil
}
