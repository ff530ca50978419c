package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wegman-software/osm3d-go/internal/proj"
)

var inverse bool

var projectCmd = &cobra.Command{
	Use:   "project <lat> <lon> | --inverse <x> <y>",
	Short: "Convert between WGS84 degrees and pseudo-Mercator meters",
	Long: `Convert a coordinate with the spherical pseudo-Mercator projection used
for all extrusions (EPSG:3857). Latitudes are clamped to ±89.5 degrees.`,
	Args: cobra.ExactArgs(2),
	RunE: runProject,
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.Flags().BoolVar(&inverse, "inverse", false, "Convert meters (x y) to degrees (lat lon)")
}

func runProject(cmd *cobra.Command, args []string) error {
	a, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid coordinate %q: %w", args[0], err)
	}
	b, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid coordinate %q: %w", args[1], err)
	}

	out := cmd.OutOrStdout()
	if inverse {
		lat, lon := proj.MetersToDegrees(a, b)
		fmt.Fprintf(out, "%.7f %.7f\n", lat, lon)
		return nil
	}
	x, y := proj.DegreesToMeters(a, b)
	fmt.Fprintf(out, "%.3f %.3f\n", x, y)
	return nil
}
