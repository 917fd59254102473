package atlas

import (
	"image"
	"sort"

	errs "github.com/matzehuels/atlaspack/pkg/errors"
)

// Asset is one decoded source image.
//
// Pix holds non-premultiplied RGBA bytes, Width*4 bytes per row and no
// trailing stride. Assets are treated as immutable once loaded.
type Asset struct {
	Name   string
	Width  int
	Height int
	Pix    []byte
	Path   string
}

// NewAsset builds an Asset from an NRGBA image. The pixel buffer is shared
// when the image is tightly packed at the origin, copied otherwise.
func NewAsset(name, path string, img *image.NRGBA) Asset {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	a := Asset{Name: name, Path: path, Width: w, Height: h}

	if b.Min == (image.Point{}) && img.Stride == w*4 && len(img.Pix) == w*h*4 {
		a.Pix = img.Pix
		return a
	}

	a.Pix = make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(a.Pix[y*w*4:(y+1)*w*4], img.Pix[off:off+w*4])
	}
	return a
}

// Image returns the asset pixels as an *image.NRGBA without copying.
func (a Asset) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    a.Pix,
		Stride: a.Width * 4,
		Rect:   image.Rect(0, 0, a.Width, a.Height),
	}
}

// Area is the unpadded pixel area, the sort key for packing.
func (a Asset) Area() int { return a.Width * a.Height }

// Padded returns the asset size including padding on all sides.
func (a Asset) Padded(padding int) (int, int) {
	return a.Width + 2*padding, a.Height + 2*padding
}

func (a Asset) validate() error {
	if err := errs.ValidateSpriteName(a.Name); err != nil {
		return err
	}
	if a.Width <= 0 || a.Height <= 0 {
		return errs.New(errs.ErrCodeInvalidInput, "asset %q has non-positive size %dx%d", a.Name, a.Width, a.Height)
	}
	if len(a.Pix) != a.Width*a.Height*4 {
		return errs.New(errs.ErrCodeInvalidInput, "asset %q has %d pixel bytes, want %d", a.Name, len(a.Pix), a.Width*a.Height*4)
	}
	return nil
}

// Catalog is the ordered list of assets to pack.
type Catalog []Asset

// Validate checks every asset and rejects duplicate names.
func (c Catalog) Validate() error {
	seen := make(map[string]string, len(c))
	for _, a := range c {
		if err := a.validate(); err != nil {
			return err
		}
		if prev, ok := seen[a.Name]; ok {
			return errs.New(errs.ErrCodeDuplicateName, "sprite name %q derived from both %s and %s", a.Name, prev, a.Path)
		}
		seen[a.Name] = a.Path
	}
	return nil
}

// SortedByArea returns a copy of the catalog sorted by descending area.
// Items of equal area keep their relative order.
func (c Catalog) SortedByArea() Catalog {
	sorted := make(Catalog, len(c))
	copy(sorted, c)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Area() > sorted[j].Area()
	})
	return sorted
}
