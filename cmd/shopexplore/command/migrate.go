package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vbonduro/shopexplore/internal/db"
	"github.com/vbonduro/shopexplore/internal/logging"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations and report the schema version",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func runMigrate(_ *cobra.Command, _ []string) error {
	cfg := loadConfig()
	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer cleanup()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	version, dirty, err := db.Version(database)
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("schema version %d is dirty; fix the database by hand", version)
	}
	logger.Info("database is up to date", "path", cfg.DBPath, "version", version)
	return nil
}
