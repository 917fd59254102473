package cli

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/atlaspack/pkg/atlas"
	"github.com/matzehuels/atlaspack/pkg/pipeline"
)

// planCommand creates the plan command, a dry run of pack.
func (c *CLI) planCommand() *cobra.Command {
	var (
		flags   packFlags
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "plan [input-dir]",
		Short: "Show where pack would place each image, without writing",
		Example: `  atlaspack plan sprites
  atlaspack plan sprites -r --json > preview.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd, args)
			if err != nil {
				return err
			}

			fs, err := workspace(&opts.InputDir)
			if err != nil {
				return err
			}
			runner, err := c.newRunner(cmd.Context(), fs, opts.NoCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			result, err := runner.Plan(cmd.Context(), opts)
			if err != nil {
				return err
			}

			if jsonOut {
				return result.Metadata.WriteJSON(cmd.OutOrStdout())
			}
			printPlan(result)
			return nil
		},
	}

	flags.register(cmd, false)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the metadata document instead of a table")
	return cmd
}

// printPlan prints the atlas summary and one row per sprite, top to bottom.
func printPlan(result *pipeline.Result) {
	p := result.Plan
	fmt.Fprintln(out, StyleTitle.Render(fmt.Sprintf("%s  %dx%d", result.Metadata.AtlasImage, p.Width, p.Height)))
	printStats(result.Stats.Images, result.Stats.Skipped, result.Stats.Fill, result.CacheInfo.PlanHit)
	for _, a := range result.Attempts {
		status := "overflow"
		if a.OK {
			status = "fit"
		}
		printDetail("attempt %d: %dx%d %s", a.Index, a.Width, a.Height, status)
	}
	fmt.Fprintln(out)

	nameWidth := 4
	for _, s := range p.Sprites {
		nameWidth = max(nameWidth, lipgloss.Width(s.Name))
	}
	name := lipgloss.NewStyle().Width(nameWidth + 2)
	num := StyleNumber.Width(6).Align(lipgloss.Right)

	fmt.Fprintln(out, StyleDim.Render(name.Render("name")+fmt.Sprintf("%6s%6s%6s%6s", "x", "y", "w", "h")))
	for _, s := range sortedForDisplay(p.Sprites) {
		fmt.Fprintln(out, name.Render(s.Name)+
			num.Render(fmt.Sprint(s.X))+num.Render(fmt.Sprint(s.Y))+
			num.Render(fmt.Sprint(s.Width))+num.Render(fmt.Sprint(s.Height)))
	}
}

// sortedForDisplay orders sprites top-to-bottom, left-to-right.
func sortedForDisplay(sprites []atlas.Sprite) []atlas.Sprite {
	sorted := append([]atlas.Sprite(nil), sprites...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y < sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})
	return sorted
}
