// Package command holds the shopexplore CLI. The root command starts the API
// server; sub-commands manage the database.
//
//	shopexplore [--listen :3001] [--db /data/shopexplore.db]
//	shopexplore serve
//	shopexplore migrate
//	shopexplore seed --file shops.json
package command

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vbonduro/shopexplore/internal/config"
)

var (
	listenAddr string
	dbPath     string
)

var rootCmd = &cobra.Command{
	Use:   "shopexplore",
	Short: "Local shop discovery API",
	Long: `shopexplore serves a JSON API of local shops and their inventories,
answering which shops lie within walking distance of the caller.
Configuration comes from the environment (and a .env file when present);
flags override the listen address and database path.`,
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the most specific command for the CLI arguments and exits
// non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&listenAddr, "listen", "", "listen address (overrides LISTEN_ADDR)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides DB_PATH)")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig() *config.Config {
	cfg := config.Load()
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg
}
