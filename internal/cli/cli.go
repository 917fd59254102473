// Package cli implements the atlaspack command-line interface.
//
// The CLI is built on cobra. Every command shares one [CLI] value carrying
// the logger; --verbose (-v) switches it to debug level, which also prints
// each shelf attempt.
//
// # Commands
//
//   - pack: Pack a directory of images into <name>.png and <name>.json
//   - plan: Show the placement that pack would produce, writing nothing
//   - cache: Inspect or clear the plan cache
//   - completion: Generate shell completion scripts
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/matzehuels/atlaspack/pkg/buildinfo"
	"github.com/matzehuels/atlaspack/pkg/cache"
	"github.com/matzehuels/atlaspack/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "atlaspack"

	// redisURLEnv selects a shared Redis plan cache instead of the local one.
	redisURLEnv = "ATLASPACK_REDIS_URL"

	// cacheScopeEnv prefixes plan keys so several projects can share one cache.
	cacheScopeEnv = "ATLASPACK_CACHE_SCOPE"

	// redisPingTimeout bounds the connectivity check before falling back.
	redisPingTimeout = 2 * time.Second
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   appName,
		Short: "atlaspack packs images into a texture atlas",
		Long: `atlaspack combines a directory of images into a single atlas image and a
JSON file recording where every image was placed, so a renderer can draw
sub-rectangles of one texture instead of loading many small files.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.packCommand())
	root.AddCommand(c.planCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner over fs.
func (c *CLI) newRunner(ctx context.Context, fs billy.Filesystem, noCache bool) (*pipeline.Runner, error) {
	store, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(fs, store, newKeyer(), c.Logger), nil
}

// newKeyer scopes plan keys when ATLASPACK_CACHE_SCOPE is set. A nil result
// selects the default keyer.
func newKeyer() cache.Keyer {
	scope := os.Getenv(cacheScopeEnv)
	if scope == "" {
		return nil
	}
	return cache.NewScopedKeyer(nil, scope+":")
}

// workspace returns a filesystem that can reach every path and rewrites the
// paths for it. When all paths stay below the working directory the
// filesystem is rooted there and paths remain relative, which keeps
// original_path in the metadata portable. Otherwise paths become absolute
// on a filesystem rooted at "/".
func workspace(paths ...*string) (billy.Filesystem, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	rel := make([]string, len(paths))
	inside := true
	for i, p := range paths {
		if *p == "" {
			continue
		}
		if filepath.IsAbs(*p) {
			inside = false
			break
		}
		r, err := filepath.Rel(cwd, filepath.Join(cwd, *p))
		if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
			inside = false
			break
		}
		rel[i] = filepath.ToSlash(r)
	}

	if inside {
		for i, p := range paths {
			if *p != "" {
				*p = rel[i]
			}
		}
		return osfs.New(cwd), nil
	}

	for _, p := range paths {
		if *p == "" {
			continue
		}
		abs, err := filepath.Abs(*p)
		if err != nil {
			return nil, err
		}
		*p = filepath.ToSlash(abs)
	}
	return osfs.New("/"), nil
}

// newCache picks the plan cache: none with --no-cache, Redis when
// ATLASPACK_REDIS_URL is set and reachable, otherwise the local file cache.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if url := os.Getenv(redisURLEnv); url != "" {
		rc, err := cache.NewRedisCache(url)
		if err != nil {
			return nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		err = rc.Ping(pingCtx)
		if err == nil {
			c.Logger.Debug("using redis plan cache")
			return rc, nil
		}
		c.Logger.Warn("redis plan cache unreachable, using local cache", "err", err)
		_ = rc.Close()
	}
	return c.fileCache(), nil
}

func (c *CLI) fileCache() cache.Cache {
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache()
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		c.Logger.Warn("plan cache disabled", "dir", dir, "err", err)
		return cache.NewNullCache()
	}
	return fc
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/atlaspack/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
