package main

import (
	"fmt"
	"os"

	"github.com/thetyagiayush/warhol-ringmaster/internal/config"
	"github.com/thetyagiayush/warhol-ringmaster/internal/database"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Migration error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args := os.Args[1:]
	if len(args) == 0 {
		return fmt.Errorf("usage: migrate [up|down|status|version]")
	}
	command := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.NewDatabase(&cfg.FilterStore, zap.NewNop())
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	defer sqlDB.Close()

	if err := database.RunGoose(sqlDB, cfg.FilterStore.Driver, command); err != nil {
		return err
	}

	switch command {
	case "up":
		fmt.Println("Migrations applied successfully")
	case "down":
		fmt.Println("Migration rolled back successfully")
	}
	return nil
}
