// Command cmesrc ingests HARP region and event catalogues, builds the
// CME/region association catalogue, and assigns regions to training splits.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jhc00/cmesrc/internal/log"
	"github.com/jhc00/cmesrc/internal/pipeline"
	"github.com/jhc00/cmesrc/internal/store"
	"github.com/jhc00/cmesrc/pkg/config"
)

var (
	configPath string
	debugLog   bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cmesrc",
	Short: "Build the CME/active-region association catalogue",
	Long: `cmesrc turns raw HARPS region time series and CME/dimming/flare
catalogues into a cleaned region catalogue, CME-region associations, and a
labelled sliding-window training dataset with a stratified region split.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return log.Init(debugLog)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the catalogue database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("migrate: schema up to date")
		return nil
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load raw catalogue files into the database ahead of a run",
}

var ingestRegionsCmd = &cobra.Command{
	Use:   "regions <dir>",
	Short: "Ingest per-region HARPS time series files from a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		return ingestRegionDir(st, args[0])
	},
}

var ingestCMEsCmd = &cobra.Command{
	Use:   "cmes <file>",
	Short: "Ingest the CME catalogue",
	Args:  cobra.ExactArgs(1),
	RunE:  ingestOneFile(pipeline.IngestCMECatalogue),
}

var ingestDimmingsCmd = &cobra.Command{
	Use:   "dimmings <file>",
	Short: "Ingest the dimming catalogue",
	Args:  cobra.ExactArgs(1),
	RunE:  ingestOneFile(pipeline.IngestDimmingCatalogue),
}

var ingestFlaresCmd = &cobra.Command{
	Use:   "flares <file>",
	Short: "Ingest the flare catalogue",
	Args:  cobra.ExactArgs(1),
	RunE:  ingestOneFile(pipeline.IngestFlareCatalogue),
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full catalogue-build pipeline (stages B, D/E, F, G)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		params, err := cfg.GetPipelineParams()
		if err != nil {
			return fmt.Errorf("run: loading pipeline params: %w", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		go func() {
			select {
			case <-sigCh:
				log.Info("run: interrupt received, finishing in-flight regions before exit")
				cancel()
			case <-ctx.Done():
			}
		}()

		report := pipeline.New(st, params).Run(ctx)
		printReport(report)
		if report.Status == pipeline.StatusFAIL {
			return report.Err
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "cmesrc.yaml", "Path to the pipeline YAML configuration file")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "Enable debug-level logging")

	rootCmd.AddCommand(migrateCmd, ingestCmd, runCmd)
	ingestCmd.AddCommand(ingestRegionsCmd, ingestCMEsCmd, ingestDimmingsCmd, ingestFlaresCmd)
}

func openStore() (config.ConfigProvider, *store.Store, error) {
	provider := config.NewCachedProvider(config.NewYAMLProvider(configPath), 0)
	dbCfg, err := provider.GetDatabaseConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loading database configuration: %w", err)
	}
	st, err := store.Open(dbCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening catalogue store: %w", err)
	}
	return provider, st, nil
}

func ingestOneFile(fn func(*store.Store, io.Reader) (int, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		_, st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer f.Close()

		skipped, err := fn(st, f)
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", args[0], err)
		}
		log.Infof("ingest: %s complete, %d rows skipped", args[0], skipped)
		return nil
	}
}

func ingestRegionDir(st *store.Store, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading region directory %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		regionID, ok := regionIDFromFilename(e.Name())
		if !ok {
			log.Warnf("ingest: skipping %s, cannot parse region id from filename", e.Name())
			continue
		}
		f, err := os.Open(dir + "/" + e.Name())
		if err != nil {
			return fmt.Errorf("opening %s: %w", e.Name(), err)
		}
		skipped, err := pipeline.IngestRegionTimeSeries(st, regionID, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", e.Name(), err)
		}
		log.Infof("ingest: region %d loaded from %s, %d rows skipped", regionID, e.Name(), skipped)
	}
	return nil
}

func regionIDFromFilename(name string) (int, bool) {
	var id int
	if _, err := fmt.Sscanf(name, "%d", &id); err != nil {
		return 0, false
	}
	return id, true
}

func printReport(r *pipeline.Report) {
	fmt.Printf("run %s: %s\n", r.RunID, r.Status)
	fmt.Printf("  CMEs matched=%d unmatched=%d\n", r.CMEs.Matched, r.CMEs.Unmatched)
	fmt.Printf("  slices accepted=%d rejected=%d imbalance=%.4f\n", r.AcceptedSlices, r.RejectedSlices, r.ImbalanceRatio)
	for _, w := range r.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
	if r.Err != nil {
		fmt.Printf("  error: %v\n", r.Err)
	}
}
