package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"metro-housing/config"
	"metro-housing/pipeline"
	"metro-housing/scraper/apartments"
	"metro-housing/scraper/census"
	"metro-housing/storage"
	"metro-housing/utils"
)

var (
	configFile string
	pageLimit  int
	outputPath string
	geoKeys    string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "metro-housing",
	Short: "Collects, merges and summarises housing data for a metro area.",
	RunE:  runPipeline,

	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Runs every source, merges them and writes the final dataset.",
	RunE:  runPipeline,
}

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Harvests rental listings only and writes them to the side file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		h := apartments.New(cfg, logger, apartments.LaunchChrome(cfg.ChromeBin))
		t, err := h.Harvest(cmd.Context())
		if err != nil {
			return err
		}
		logger.Info("Harvested %d listings into %s", t.Len(), cfg.ListingsSidePath())
		return nil
	},
}

var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Fetches housing trends from the Census API only.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		t, err := census.New(cfg, logger).Fetch(cmd.Context(), cfg.GeoKeys)
		if err != nil {
			return err
		}
		logger.Info("Fetched %d trend rows for %d ZIP codes", t.Len(), len(cfg.GeoKeys))
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "JSON5 config file overlaid on the environment (a <name>.local.<ext> sibling is merged too)")
	pf.IntVar(&pageLimit, "pages", 1, "Maximum listing pages to harvest, 0 for all")
	pf.StringVar(&outputPath, "output", "", "Path of the merged CSV")
	pf.StringVar(&geoKeys, "zips", "", "Comma-separated ZIP codes for the Census API")
	pf.BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(runCmd, harvestCmd, trendsCmd)
}

// setup resolves configuration (env, then file, then flags) and creates the
// output directory.
func setup(cmd *cobra.Command) (*config.Config, *utils.Logger, error) {
	cfg := config.Load()
	if configFile != "" {
		merged, err := config.LoadFile(cfg, configFile)
		if err != nil {
			return nil, nil, err
		}
		cfg = merged
	}

	flags := cmd.Flags()
	if flags.Changed("pages") {
		cfg.PageLimit = pageLimit
	}
	if flags.Changed("output") {
		cfg.OutputPath = outputPath
	}
	if flags.Changed("zips") {
		cfg.GeoKeys = config.ParseKeyList(geoKeys)
	}
	if flags.Changed("debug") {
		cfg.Debug = debug
	}

	logger := utils.NewLoggerTo(os.Stdout, os.Stderr, cfg.Debug)
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create output dir: %w", err)
	}
	return cfg, logger, nil
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	logger.Info("=== Metro housing pipeline starting ===")
	logger.Info("Config: pages %d | ZIP codes %d | page delay %dms | request delay %dms",
		cfg.PageLimit, len(cfg.GeoKeys), cfg.PageDelayMs, cfg.RequestDelayMs)

	var opts []pipeline.Option
	if cfg.StoreDriver != "" {
		store, err := storage.Open(cfg.StoreDriver, cfg.StoreDSN)
		if err != nil {
			logger.Error("Failed to open %s store: %v", cfg.StoreDriver, err)
			logger.Error("Continuing without the SQL mirror")
		} else {
			defer store.Close()
			opts = append(opts, pipeline.WithStore(store))
		}
	}

	p := pipeline.New(cfg, logger,
		apartments.New(cfg, logger, apartments.LaunchChrome(cfg.ChromeBin)),
		census.New(cfg, logger),
		opts...,
	)

	merged, err := p.Run(cmd.Context())
	if err != nil {
		return err
	}
	if merged.Len() > 0 {
		logger.Info("Done. Merged dataset → %s", cfg.OutputPath)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
