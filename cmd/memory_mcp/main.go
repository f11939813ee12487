// Command memory_mcp serves search_memory over MCP stdio.
//
// Logs go to the log file only; stdout carries the MCP protocol.
package main

import (
	"fmt"
	"os"

	"game-exploration-be/internal/config"
	"game-exploration-be/internal/mcpserver"
	"game-exploration-be/internal/pkg/logger"
	"game-exploration-be/internal/repository/unitofwork"
	"game-exploration-be/internal/service"
	"game-exploration-be/pkg/database"

	"github.com/mark3labs/mcp-go/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	db, err := database.NewGormDB(database.GormConfig{
		Driver:    cfg.Database.Driver,
		DSN:       cfg.Database.Connection,
		Quiet:     true,
		LogWriter: os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}

	// stdout carries the MCP protocol.
	sysLogger := logger.New(logger.Options{FilePath: cfg.App.LogFilePath, Console: os.Stderr, Production: true})
	defer sysLogger.Sync()

	memoryService := service.NewMemoryService(unitofwork.NewRepositoryFactory(db), sysLogger)
	return server.ServeStdio(mcpserver.New(memoryService))
}
