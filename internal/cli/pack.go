package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/matzehuels/atlaspack/pkg/atlas"
	errs "github.com/matzehuels/atlaspack/pkg/errors"
	"github.com/matzehuels/atlaspack/pkg/pipeline"
	"github.com/matzehuels/atlaspack/pkg/source"
)

// packFlags holds the flags shared by pack and plan.
type packFlags struct {
	config    string
	name      string
	maxWidth  int
	maxHeight int
	padding   int
	noPOT     bool
	recursive bool
	noCache   bool
	publish   string
}

func (f *packFlags) register(cmd *cobra.Command, withPublish bool) {
	fl := cmd.Flags()
	fl.StringVarP(&f.config, "config", "c", "", "TOML config file (flags override its values)")
	fl.StringVar(&f.name, "name", pipeline.DefaultName, "base name for the output files")
	fl.IntVar(&f.maxWidth, "max-width", atlas.DefaultMaxWidth, "maximum atlas width")
	fl.IntVar(&f.maxHeight, "max-height", atlas.DefaultMaxHeight, "maximum atlas height")
	fl.IntVar(&f.padding, "padding", atlas.DefaultPadding, "transparent pixels around every image")
	fl.BoolVar(&f.noPOT, "no-pot", false, "allow atlas sizes that are not powers of two")
	fl.BoolVarP(&f.recursive, "recursive", "r", false, "include images in subdirectories")
	fl.BoolVar(&f.noCache, "no-cache", false, "ignore and do not update the plan cache")
	if withPublish {
		fl.StringVar(&f.publish, "publish", "", "upload the atlas to s3://bucket[/prefix] after writing")
	}
}

// options merges, lowest precedence first: defaults, the config file,
// positional arguments, then flags the user actually set.
func (f *packFlags) options(cmd *cobra.Command, args []string) (pipeline.Options, error) {
	opts := pipeline.DefaultOptions()

	if f.config != "" {
		abs, err := filepath.Abs(f.config)
		if err != nil {
			return opts, err
		}
		opts, err = pipeline.LoadConfig(osfs.New(filepath.Dir(abs)), filepath.Base(abs), opts)
		if err != nil {
			return opts, err
		}
	}

	if len(args) > 0 {
		opts.InputDir = args[0]
	}
	if len(args) > 1 {
		opts.OutputDir = args[1]
	}

	fl := cmd.Flags()
	if fl.Changed("name") {
		opts.Name = f.name
	}
	if fl.Changed("max-width") {
		opts.MaxWidth = f.maxWidth
	}
	if fl.Changed("max-height") {
		opts.MaxHeight = f.maxHeight
	}
	if fl.Changed("padding") {
		opts.Padding = f.padding
	}
	if fl.Changed("no-pot") {
		opts.PowerOfTwo = !f.noPOT
	}
	if fl.Changed("recursive") {
		opts.Recursive = f.recursive
	}
	if fl.Changed("no-cache") {
		opts.NoCache = f.noCache
	}
	if fl.Changed("publish") {
		opts.Publish = f.publish
	}
	return opts, nil
}

// packCommand creates the pack command.
func (c *CLI) packCommand() *cobra.Command {
	var flags packFlags

	cmd := &cobra.Command{
		Use:   "pack [input-dir] [output-dir]",
		Short: "Pack a directory of images into an atlas",
		Long: fmt.Sprintf(`Pack every image in input-dir into <name>.png and <name>.json in output-dir.

Images are sorted by area and placed in rows. If they do not fit the
estimated size, the atlas doubles in each direction (up to the maximum)
and packing is retried, at most three times in total.

Sprite names come from the path below input-dir with "/" replaced by "_"
and the extension removed. Two images mapping to the same name are an error.

Input and output directories may also come from --config.
Supported formats: %s`, strings.Join(source.Extensions(), " ")),
		Example: `  atlaspack pack sprites build
  atlaspack pack art/ui build --name ui --padding 1 --no-pot -r
  atlaspack pack --config atlaspack.toml --publish s3://assets/atlases`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd, args)
			if err != nil {
				return err
			}
			return c.runPack(cmd, opts)
		},
	}

	flags.register(cmd, true)
	return cmd
}

func (c *CLI) runPack(cmd *cobra.Command, opts pipeline.Options) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	fs, err := workspace(&opts.InputDir, &opts.OutputDir)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(cmd.Context(), fs, opts.NoCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(logger)
	result, err := runner.Execute(ctx, opts)
	if err != nil {
		if errs.IsTerminal(err) {
			printDetail("No files written to %s", opts.OutputDir)
		}
		return err
	}
	prog.done(fmt.Sprintf("Packed %d images", result.Stats.Images))

	for _, s := range result.Skipped {
		printWarning("Skipped %s", s.Path)
	}
	printSuccess("Atlas %dx%d (%d attempts)", result.Plan.Width, result.Plan.Height, result.Plan.Attempts)
	printStats(result.Stats.Images, result.Stats.Skipped, result.Stats.Fill, result.CacheInfo.PlanHit)
	for _, f := range result.Files.All() {
		printFile(f)
	}
	for _, uri := range result.Published {
		printFile(uri)
	}
	return nil
}
