package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexboumb/SuperSimpleStocks2/internal/stock"
	"github.com/alexboumb/SuperSimpleStocks2/internal/valuation"
	"github.com/alexboumb/SuperSimpleStocks2/pkg/config"
	"github.com/alexboumb/SuperSimpleStocks2/pkg/logger"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stocks",
	Short: "Super Simple Stocks - a small equity market engine",
	Long: `Super Simple Stocks

Dividend yield, P/E ratio, trade recording, volume weighted stock price
and the all share index over a catalogue of stocks.

Usage:
  go run ./cmd/stocks [command]

Examples:
  go run ./cmd/stocks shell
  go run ./cmd/stocks selfcheck
  go run ./cmd/stocks catalogue
  go run ./cmd/stocks api --port 8089`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// app holds what every command needs
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	catalogue *stock.Catalogue
}

// bootstrap loads config, logger and catalogue from the global flags
func bootstrap() (*app, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadWithEnvFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	switch env {
	case "":
	case "development", "staging", "production":
		cfg.Env = env
	default:
		return nil, fmt.Errorf("--env must be one of: development, staging, production")
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	catalogue, err := loadCatalogue(cfg)
	if err != nil {
		return nil, err
	}

	log.WithFields(map[string]interface{}{
		"stocks": catalogue.Len(),
		"source": catalogueSource(cfg),
	}).Debug("Catalogue loaded")

	return &app{cfg: cfg, log: log, catalogue: catalogue}, nil
}

// newEngine builds a valuation engine over the loaded catalogue
func (a *app) newEngine() *valuation.Engine {
	return valuation.New(a.catalogue,
		valuation.WithWindow(a.cfg.Market.VWSPWindow),
		valuation.WithLogger(a.log),
	)
}

func loadCatalogue(cfg *config.Config) (*stock.Catalogue, error) {
	if cfg.Market.CatalogueFile == "" {
		return stock.DefaultCatalogue(), nil
	}

	catalogue, err := stock.LoadCatalogue(cfg.Market.CatalogueFile)
	if err != nil {
		return nil, fmt.Errorf("load catalogue: %w", err)
	}
	return catalogue, nil
}

func catalogueSource(cfg *config.Config) string {
	if cfg.Market.CatalogueFile == "" {
		return "built-in"
	}
	return cfg.Market.CatalogueFile
}
