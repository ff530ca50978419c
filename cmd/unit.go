package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wegman-software/osm3d-go/internal/units"
)

var unitCmd = &cobra.Command{
	Use:   "unit <value>...",
	Short: "Convert OSM length values to meters",
	Long: `Convert free-text length values as found in height tags to meters.

Recognised units are m, km, mi, nmi and feet/inch notation such as 5'6".
Unknown units are left unconverted and unparsable values yield 0.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		for _, arg := range args {
			fmt.Fprintf(out, "%s\t%g\n", arg, units.Parse(arg))
		}
	},
}

func init() {
	rootCmd.AddCommand(unitCmd)
}
