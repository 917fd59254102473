package pipeline

import (
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	errs "github.com/matzehuels/atlaspack/pkg/errors"
)

// LoadConfig decodes a TOML file over base and returns the merged options.
// Keys absent from the file keep their value from base; unknown keys are
// rejected so typos do not pass silently.
//
//	input = "art/sprites"
//	output = "build"
//	name = "ui"
//	padding = 1
//	power_of_two = false
func LoadConfig(fs billy.Filesystem, path string, base Options) (Options, error) {
	data, err := util.ReadFile(fs, path)
	if err != nil {
		return base, errs.Wrap(errs.ErrCodeFileNotFound, err, "read config %s", path)
	}

	opts := base
	md, err := toml.Decode(string(data), &opts)
	if err != nil {
		return base, errs.Wrap(errs.ErrCodeInvalidInput, err, "parse config %s", path)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return base, errs.New(errs.ErrCodeInvalidInput, "config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return opts, nil
}
