package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"spinwheel/internal/ledger"
	"spinwheel/internal/logger"
	"spinwheel/internal/server"
	"spinwheel/internal/wheelapi"
)

const usage = "usage: spinwheel [config.json] [api|bot|worker|migrate|all]"

func main() {
	config, err := server.ConfigLoad(server.ConfigPath(os.Args))
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if err := server.SetLogger(config); err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	mode := runMode(os.Args)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, mode, config); err != nil {
		logger.Error("exiting", zap.String("mode", mode), zap.Error(err))
		os.Exit(1)
	}
}

func runMode(args []string) string {
	for _, arg := range args[1:] {
		if !strings.HasSuffix(arg, ".json") {
			return arg
		}
	}
	return "all"
}

func run(ctx context.Context, mode string, config *server.Config) error {
	if mode == "migrate" {
		wheelapi.LoadEnv()
		db, err := ledger.Open(os.Getenv("DB_DRIVER"), os.Getenv("DB_DSN"))
		if err != nil {
			return err
		}
		defer ledger.Close(db)
		if err := ledger.Migrate(ctx, db); err != nil {
			return err
		}
		version, err := ledger.SchemaVersion(ctx, db)
		if err != nil {
			return err
		}
		logger.Info("schema migrated", zap.Int("version", version))
		return nil
	}

	app, err := wheelapi.Init(ctx, config.Options())
	if err != nil {
		return err
	}
	defer app.Close()

	g, ctx := errgroup.WithContext(ctx)
	switch mode {
	case "api":
		g.Go(func() error { return server.ApiInit(ctx, app, config) })
	case "bot":
		g.Go(func() error { return server.BotInit(ctx, app, config) })
	case "worker":
		g.Go(func() error { return server.WorkerInit(ctx, app, config) })
	case "all":
		g.Go(func() error { return server.ApiInit(ctx, app, config) })
		g.Go(func() error { return server.BotInit(ctx, app, config) })
		g.Go(func() error { return server.WorkerInit(ctx, app, config) })
	default:
		return fmt.Errorf("unknown mode %q, %s", mode, usage)
	}
	return g.Wait()
}
