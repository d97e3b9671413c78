package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cloud-ru/mcp-fintools-go/internal/cli"
	"github.com/cloud-ru/mcp-fintools-go/internal/config"
	"github.com/cloud-ru/mcp-fintools-go/internal/logging"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Options{
		Level:    cfg.LogLevel,
		FilePath: cfg.LogFile,
	})

	app := cli.NewApp(cfg, logger)
	if err := cli.NewRootCmd(app).ExecuteContext(context.Background()); err != nil {
		_ = app.Close()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
