// creditplan projects the 40-quarter credit lifecycle of a loan portfolio:
// originations, amortization, defaults, recoveries, NPV of the
// non-performing book and ECL provisions.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fracarlesi/piano-excel-sub003/api"
	"github.com/fracarlesi/piano-excel-sub003/internal/config"
	"github.com/fracarlesi/piano-excel-sub003/internal/infra"
	"github.com/fracarlesi/piano-excel-sub003/internal/refrate"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, set by the root command.
var (
	cfg    *config.Config
	logger *slog.Logger
)

func main() {
	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "creditplan",
	Short: "Credit lifecycle and recovery-waterfall projections",
	Long: `creditplan projects a loan portfolio over a 40-quarter horizon:
vintages, amortization schedules, default events, collateral and
state-guarantee recoveries, NPV of the non-performing book and the
ECL provision, rolled up by product, division and portfolio.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		logger = infra.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(defaultsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configInitCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("creditplan %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Serve Command ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			cfg.API.Port = port
		}
		api.Version = version
		srv, err := api.NewServer(cfg, logger)
		if err != nil {
			return err
		}
		return srv.ListenAndServe(fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (default: api.port)")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and market assumptions",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "═══════════════════════════════════════")
		fmt.Fprintln(out, "  creditplan status")
		fmt.Fprintln(out, "═══════════════════════════════════════")
		fmt.Fprintf(out, "  Version:       %s (%s)\n", version, commit)
		fmt.Fprintf(out, "  Config file:   %s\n", config.ConfigFilePath())
		fmt.Fprintf(out, "  API Server:    %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Fprintf(out, "  Workers:       %d (0 = one per CPU)\n", cfg.Engine.Workers)
		fmt.Fprintln(out)

		fmt.Fprintln(out, "  Settings:")
		for _, s := range config.CheckSettings(cfg) {
			value := s.Value
			if value == "" {
				value = "(unset)"
			}
			fmt.Fprintf(out, "    %-22s %-28s [%s]\n", s.Name+":", value, s.Source)
		}

		src, err := refrate.New(cfg.Rates)
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		if g, err := src.Rates(cmd.Context()); err != nil {
			fmt.Fprintf(out, "  Rates (%s):  unavailable: %v\n", src.Name(), err)
		} else {
			fmt.Fprintf(out, "  Rates (%s):  reference %.2f%% | fixed %.2f%% | cost of funds %.2f%%\n",
				src.Name(), g.ReferenceRate, g.FixedReferenceRate, g.CostOfFunds)
		}
		fmt.Fprintln(out, "═══════════════════════════════════════")
		return nil
	},
}

// --- Config Init Command ---

var configInitCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "Write the effective configuration as YAML",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigFile
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil {
			if force, _ := cmd.Flags().GetBool("force"); !force {
				return fmt.Errorf("%s exists; use --force to overwrite", path)
			}
		}
		if err := config.SaveToFile(cfg, path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
}
