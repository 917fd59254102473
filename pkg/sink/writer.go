// Package sink writes finished atlases to disk and, optionally, publishes
// them to object storage.
package sink

import (
	"bytes"
	"image"
	"io"
	"path"

	"github.com/disintegration/imaging"
	"github.com/go-git/go-billy/v5"
	"github.com/google/uuid"

	"github.com/matzehuels/atlaspack/pkg/atlas"
	errs "github.com/matzehuels/atlaspack/pkg/errors"
)

// Files names the two outputs of a write, as paths on the target filesystem.
type Files struct {
	Image    string
	Metadata string
}

// All returns the output paths, image first.
func (f Files) All() []string {
	return []string{f.Image, f.Metadata}
}

// ImageName returns the atlas image file name for a base name.
func ImageName(name string) string { return name + ".png" }

// MetadataName returns the metadata file name for a base name.
func MetadataName(name string) string { return name + ".json" }

// WriteAtlas writes <name>.png and <name>.json into dir, creating it if
// needed. Both files are staged under temporary names and renamed into place
// only once both encoded successfully, so a failure leaves neither behind.
func WriteAtlas(fs billy.Filesystem, dir, name string, img image.Image, meta atlas.Metadata) (Files, error) {
	if err := errs.ValidateAtlasName(name); err != nil {
		return Files{}, err
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return Files{}, errs.Wrap(errs.ErrCodeIO, err, "create output directory %s", dir)
	}

	out := Files{
		Image:    path.Join(dir, ImageName(name)),
		Metadata: path.Join(dir, MetadataName(name)),
	}

	var pngBuf, jsonBuf bytes.Buffer
	if err := imaging.Encode(&pngBuf, img, imaging.PNG); err != nil {
		return Files{}, errs.Wrap(errs.ErrCodeInternal, err, "encode %s", out.Image)
	}
	if err := meta.WriteJSON(&jsonBuf); err != nil {
		return Files{}, errs.Wrap(errs.ErrCodeInternal, err, "encode %s", out.Metadata)
	}

	imgTmp, err := stage(fs, out.Image, &pngBuf)
	if err != nil {
		return Files{}, err
	}
	metaTmp, err := stage(fs, out.Metadata, &jsonBuf)
	if err != nil {
		_ = fs.Remove(imgTmp)
		return Files{}, err
	}

	if err := fs.Rename(imgTmp, out.Image); err != nil {
		_ = fs.Remove(imgTmp)
		_ = fs.Remove(metaTmp)
		return Files{}, errs.Wrap(errs.ErrCodeIO, err, "rename %s", out.Image)
	}
	if err := fs.Rename(metaTmp, out.Metadata); err != nil {
		_ = fs.Remove(metaTmp)
		_ = fs.Remove(out.Image)
		return Files{}, errs.Wrap(errs.ErrCodeIO, err, "rename %s", out.Metadata)
	}
	return out, nil
}

// stage writes r to a hidden temporary sibling of final and returns its path.
func stage(fs billy.Filesystem, final string, r io.Reader) (string, error) {
	dir, file := path.Split(final)
	tmp := path.Join(dir, "."+file+"."+uuid.NewString()+".tmp")

	f, err := fs.Create(tmp)
	if err != nil {
		return "", errs.Wrap(errs.ErrCodeIO, err, "create %s", tmp)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = fs.Remove(tmp)
		return "", errs.Wrap(errs.ErrCodeIO, err, "write %s", final)
	}
	if err := f.Close(); err != nil {
		_ = fs.Remove(tmp)
		return "", errs.Wrap(errs.ErrCodeIO, err, "close %s", final)
	}
	return tmp, nil
}
