package atlas

import "image"

// Composite allocates a transparent atlas of the plan size and copies every
// sprite's source pixels into place, row by row, without blending.
//
// The plan must satisfy the placement invariants and cover the catalog
// exactly (see [Plan.Covers]), so a stale or corrupt plan, for example one
// read back from a cache, never produces a partial image.
func Composite(p *Plan, c Catalog) (*image.NRGBA, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := p.Covers(c); err != nil {
		return nil, err
	}

	byName := make(map[string]Asset, len(c))
	for _, a := range c {
		byName[a.Name] = a
	}

	dst := image.NewNRGBA(p.Bounds())
	for _, s := range p.Sprites {
		blit(dst, byName[s.Name], s.X, s.Y)
	}
	return dst, nil
}

func blit(dst *image.NRGBA, a Asset, x, y int) {
	row := a.Width * 4
	for j := 0; j < a.Height; j++ {
		off := dst.PixOffset(x, y+j)
		copy(dst.Pix[off:off+row], a.Pix[j*row:(j+1)*row])
	}
}
