package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/angsh-d/clinops-intel-sub000/internal/cache"
	"github.com/angsh-d/clinops-intel-sub000/internal/config"
	"github.com/angsh-d/clinops-intel-sub000/internal/repo"
	"github.com/angsh-d/clinops-intel-sub000/internal/utils"
)

var version = "dev"

var (
	configPath string
	noColor    bool
	coreURL    string
)

var rootCmd = &cobra.Command{
	Use:   "clinops",
	Short: "Operations intelligence for clinical trials",
	Long: `clinops renders trial operations dashboards in the terminal and runs
agent investigations against a clinops-core backend.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the clinops version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("clinops version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to configuration file")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&coreURL, "core-url", "", "clinops-core base URL (overrides config)")

	rootCmd.AddCommand(
		overviewCmd,
		studyCmd,
		sitesCmd,
		siteCmd,
		qualityCmd,
		vendorsCmd,
		vendorCmd,
		financialsCmd,
		agentsCmd,
		investigateCmd,
		watchCmd,
		historyCmd,
		versionCmd,
	)
}

// app bundles the pieces every command needs: resolved configuration, a
// logger, and a core client with its response cache already attached.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	client *repo.CoreClient
}

// newApp is a var so command tests can substitute a stub.
var newApp = func() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if coreURL != "" {
		cfg.Clients.Core.BaseURL = coreURL
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	slog.SetDefault(logger)

	client := repo.NewCoreClient(
		cfg.Clients.Core.BaseURL,
		cfg.Clients.Core.APIPath,
		cfg.Clients.Core.Timeout,
		cache.New(cfg.Cache.TTL),
	)
	return &app{cfg: cfg, logger: logger, client: client}, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
