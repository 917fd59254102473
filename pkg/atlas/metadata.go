package atlas

import (
	"encoding/json"
	"io"
)

// Metadata is the placement document written next to the atlas image.
type Metadata struct {
	AtlasImage string                `json:"atlas_image"`
	Sprites    map[string]SpriteMeta `json:"sprites"`
	AtlasSize  [2]int                `json:"atlas_size"`
	Settings   MetaSettings          `json:"settings"`
}

// SpriteMeta is one entry of [Metadata.Sprites].
type SpriteMeta struct {
	X            int    `json:"x"`
	Y            int    `json:"y"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Rotated      bool   `json:"rotated"`
	OriginalPath string `json:"original_path"`
}

// MetaSettings records the options the atlas was built with. Recursive is a
// loader option and has no effect on packing.
type MetaSettings struct {
	Padding    int  `json:"padding"`
	PowerOfTwo bool `json:"power_of_two"`
	Recursive  bool `json:"recursive"`
}

// BuildMetadata produces the metadata record for an accepted plan.
func BuildMetadata(p *Plan, atlasImage string, recursive bool) Metadata {
	m := Metadata{
		AtlasImage: atlasImage,
		Sprites:    make(map[string]SpriteMeta, len(p.Sprites)),
		AtlasSize:  [2]int{p.Width, p.Height},
		Settings: MetaSettings{
			Padding:    p.Padding,
			PowerOfTwo: p.PowerOfTwo,
			Recursive:  recursive,
		},
	}
	for _, s := range p.Sprites {
		m.Sprites[s.Name] = SpriteMeta{
			X:            s.X,
			Y:            s.Y,
			Width:        s.Width,
			Height:       s.Height,
			Rotated:      s.Rotated,
			OriginalPath: s.Path,
		}
	}
	return m
}

// WriteJSON encodes the metadata as indented JSON.
func (m Metadata) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// ReadMetadata decodes a metadata document written by [Metadata.WriteJSON].
func ReadMetadata(r io.Reader) (Metadata, error) {
	var m Metadata
	err := json.NewDecoder(r).Decode(&m)
	return m, err
}
