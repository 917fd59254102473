// Package source discovers and decodes the images that make up an atlas.
//
// Images are read through a [billy.Filesystem], so the same loader serves the
// CLI (osfs rooted at the working directory) and tests (memfs). Every decoded
// image is normalised to non-premultiplied RGBA before it enters the
// [atlas.Catalog].
//
// # Naming
//
// A sprite's name is derived from its path relative to the input directory:
// directory segments joined with "_", then "_", then the file stem. A file
// directly in the input directory uses its stem alone, so
//
//	sprites/hero.png         -> hero
//	sprites/ui/icons/gem.png -> ui_icons_gem
//
// Two files deriving the same name (hero.png and hero.jpg, or a_b/c.png and
// a/b_c.png) are rejected with DUPLICATE_NAME rather than silently
// overwriting each other.
//
// # Failures
//
// A file that cannot be read or decoded is skipped and reported in
// [Result.Skipped]; loading continues with the rest. An empty result is not
// an error here, the pipeline decides what to do with it.
package source

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/ftrvxmtrx/tga"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"

	"github.com/matzehuels/atlaspack/pkg/atlas"
	errs "github.com/matzehuels/atlaspack/pkg/errors"
)

type decodeFunc func(io.Reader) (image.Image, error)

// decoders maps lower-case extensions to their decoder. Dispatch is by
// extension rather than image.Decode because TGA has no magic number.
var decoders = map[string]decodeFunc{
	".png":  png.Decode,
	".jpg":  jpeg.Decode,
	".jpeg": jpeg.Decode,
	".gif":  gif.Decode,
	".bmp":  bmp.Decode,
	".tga":  tga.Decode,
	".tif":  tiff.Decode,
	".tiff": tiff.Decode,
	".webp": webp.Decode,
}

// Supported reports whether the file extension is one the loader decodes.
func Supported(filename string) bool {
	_, ok := decoders[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Extensions returns the supported extensions in sorted order.
func Extensions() []string {
	exts := make([]string, 0, len(decoders))
	for ext := range decoders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Skipped is a file that matched a supported extension but could not be used.
type Skipped struct {
	Path string
	Err  error
}

// Result is the outcome of a load.
type Result struct {
	Catalog atlas.Catalog
	Skipped []Skipped
}

// Loader reads images from a filesystem.
type Loader struct {
	fs     billy.Filesystem
	logger *log.Logger
}

// NewLoader creates a loader over fs. A nil logger logs nowhere.
func NewLoader(fs billy.Filesystem, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Loader{fs: fs, logger: logger}
}

// Load reads every supported image in dir, descending into subdirectories
// when recursive is set. Files are visited in lexical order so the catalog
// order is reproducible.
func (l *Loader) Load(ctx context.Context, dir string, recursive bool) (*Result, error) {
	if err := errs.ValidatePath(dir); err != nil {
		return nil, err
	}

	info, err := l.fs.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "input directory %s", dir)
		}
		return nil, errs.Wrap(errs.ErrCodeIO, err, "stat %s", dir)
	}
	if !info.IsDir() {
		return nil, errs.New(errs.ErrCodeInvalidPath, "input %s is not a directory", dir)
	}

	res := &Result{}
	owners := make(map[string]string)
	if err := l.walk(ctx, dir, "", recursive, res, owners); err != nil {
		return nil, err
	}
	return res, nil
}

func (l *Loader) walk(ctx context.Context, root, rel string, recursive bool, res *Result, owners map[string]string) error {
	dir := filepath.Join(root, rel)
	entries, err := l.fs.ReadDir(dir)
	if err != nil {
		return errs.Wrap(errs.ErrCodeIO, err, "read directory %s", dir)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		childRel := filepath.Join(rel, e.Name())
		if e.IsDir() {
			if recursive {
				if err := l.walk(ctx, root, childRel, recursive, res, owners); err != nil {
					return err
				}
			}
			continue
		}
		if !Supported(e.Name()) {
			continue
		}

		file := filepath.Join(root, childRel)
		name := SpriteName(childRel)

		img, err := l.decode(file)
		if err != nil {
			l.logger.Warn("skipping image", "path", file, "err", errs.UserMessage(err))
			res.Skipped = append(res.Skipped, Skipped{Path: file, Err: err})
			continue
		}

		if prev, ok := owners[name]; ok {
			return errs.New(errs.ErrCodeDuplicateName, "sprite name %q derived from both %s and %s", name, prev, file)
		}
		owners[name] = file

		asset := atlas.NewAsset(name, file, img)
		l.logger.Debug("loaded image", "name", name, "size", fmt.Sprintf("%dx%d", asset.Width, asset.Height))
		res.Catalog = append(res.Catalog, asset)
	}
	return nil
}

func (l *Loader) decode(file string) (*image.NRGBA, error) {
	data, err := util.ReadFile(l.fs, file)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeDecodeFailed, err, "read %s", file)
	}

	decode := decoders[strings.ToLower(filepath.Ext(file))]
	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeDecodeFailed, err, "decode %s (content looks like %s)", file, mimetype.Detect(data))
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errs.New(errs.ErrCodeDecodeFailed, "decode %s: empty image", file)
	}
	return imaging.Clone(img), nil
}

// SpriteName derives a sprite name from a path relative to the input root.
func SpriteName(rel string) string {
	dir, file := path.Split(filepath.ToSlash(rel))
	stem := strings.TrimSuffix(file, path.Ext(file))

	dir = strings.Trim(dir, "/")
	if dir == "" || dir == "." {
		return stem
	}
	return strings.ReplaceAll(dir, "/", "_") + "_" + stem
}
