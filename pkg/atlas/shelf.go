package atlas

// Shelf places the sorted catalog left-to-right, top-to-bottom into rows of
// the given size. It returns one sprite per asset in input order, or false if
// some asset does not fit. A failed attempt keeps nothing.
//
// An item wider than the atlas fails the attempt, and the height check
// applies to every row including the first. A plain shelf packer would clip
// such items at the atlas edge; here every placed sprite is contained.
func Shelf(sorted Catalog, size Size, padding int) ([]Sprite, bool) {
	sprites := make([]Sprite, 0, len(sorted))
	x, y, rowHeight := 0, 0, 0

	for _, a := range sorted {
		pw, ph := a.Padded(padding)
		if pw > size.Width {
			return nil, false
		}

		if x+pw > size.Width {
			x = 0
			y += rowHeight
			rowHeight = 0
		}
		if y+ph > size.Height {
			return nil, false
		}

		sprites = append(sprites, Sprite{
			Name:   a.Name,
			X:      x + padding,
			Y:      y + padding,
			Width:  a.Width,
			Height: a.Height,
			Path:   a.Path,
		})

		x += pw
		rowHeight = max(rowHeight, ph)
	}

	return sprites, true
}
