package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/wegman-software/osm3d-go/internal/config"
	"github.com/wegman-software/osm3d-go/internal/logger"
)

var (
	cfg        = config.DefaultConfig()
	configFile string
	attributes bool
)

var rootCmd = &cobra.Command{
	Use:   "osm3d",
	Short: "Extrude OpenStreetMap buildings into 3D solids",
	Long: `osm3d reads OpenStreetMap XML, resolves multipolygon relations and
extrudes buildings and tagged objects using their height, level and roof tags.

Features:
  - Streaming XML parser with per-entity and per-attribute switches
  - Relation resolution with nested relations and cycle protection
  - Building/object and 2D/3D classification with unit-aware heights
  - GeoJSON and PostGIS (POLYHEDRALSURFACE Z) output`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			if err := loadConfigFile(cmd.Flags(), configFile); err != nil {
				return err
			}
		}
		if attributes {
			cfg.Parser = cfg.Parser.AllAttributes()
		}

		if cfg.LogFile != "" {
			logger.InitWithFile(cfg.Verbose, cfg.LogFile)
		} else {
			logger.Init(cfg.Verbose)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringVarP(&configFile, "config", "c", "", "YAML config file; explicit flags take precedence")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Enable verbose output")

	// Logging and metrics flags
	flags.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Path to log file for persistent logging (JSON format)")
	flags.DurationVar(&cfg.MetricsInterval, "metrics-interval", cfg.MetricsInterval, "Interval for system metrics logging (e.g., 10s, 1m), 0 disables")

	// Parser switches
	flags.BoolVar(&cfg.Parser.LoadNodes, "load-nodes", cfg.Parser.LoadNodes, "Load <node> elements")
	flags.BoolVar(&cfg.Parser.LoadWays, "load-ways", cfg.Parser.LoadWays, "Load <way> elements")
	flags.BoolVar(&cfg.Parser.LoadRelations, "load-relations", cfg.Parser.LoadRelations, "Load <relation> elements")
	flags.BoolVar(&cfg.Parser.LoadNodeSubtree, "node-tags", cfg.Parser.LoadNodeSubtree, "Load node tags")
	flags.BoolVar(&cfg.Parser.LoadWaySubtree, "way-subtree", cfg.Parser.LoadWaySubtree, "Load way node refs and tags")
	flags.BoolVar(&cfg.Parser.LoadRelationSubtree, "relation-subtree", cfg.Parser.LoadRelationSubtree, "Load relation members and tags")
	flags.BoolVar(&attributes, "attributes", false, "Load visible, version, changeset, timestamp, user and uid attributes")

	// Database flags (persistent so they're available to all subcommands)
	flags.StringVar(&cfg.DBHost, "db-host", cfg.DBHost, "PostgreSQL host")
	flags.IntVar(&cfg.DBPort, "db-port", cfg.DBPort, "PostgreSQL port")
	flags.StringVarP(&cfg.DBName, "db-name", "d", cfg.DBName, "PostgreSQL database name")
	flags.StringVarP(&cfg.DBUser, "db-user", "U", cfg.DBUser, "PostgreSQL user")
	flags.StringVarP(&cfg.DBPassword, "db-password", "W", cfg.DBPassword, "PostgreSQL password")
	flags.StringVar(&cfg.DBSchema, "db-schema", cfg.DBSchema, "PostgreSQL schema")
}

// loadConfigFile overlays the YAML file onto cfg and re-applies every flag
// given on the command line.
func loadConfigFile(flags *pflag.FlagSet, path string) error {
	explicit := make(map[string]string)
	flags.Visit(func(f *pflag.Flag) {
		explicit[f.Name] = f.Value.String()
	})

	if err := cfg.LoadFile(path); err != nil {
		return err
	}

	for name, value := range explicit {
		if err := flags.Set(name, value); err != nil {
			return err
		}
	}
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM, which aborts a running load
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func exitWithError(msg string, err error) {
	log := logger.Get()
	if err != nil {
		log.Error(msg, zap.Error(err))
	} else {
		log.Error(msg)
	}
	logger.Sync()
	os.Exit(1)
}
