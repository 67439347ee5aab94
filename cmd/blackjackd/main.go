package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/Babyy-dev/blackjack/internal/server"
	"github.com/Babyy-dev/blackjack/internal/store"
)

var version = "dev"

type CLI struct {
	Serve   ServeCmd   `cmd:"" default:"1" help:"Run the blackjack casino server"`
	Version VersionCmd `cmd:"" help:"Print version and exit"`
}

type ServeCmd struct {
	Config      string `short:"c" default:"blackjack.hcl" help:"Path to HCL configuration file"`
	Addr        string `help:"Listen address, overrides the config file (host:port)"`
	Debug       bool   `short:"d" help:"Enable debug logging"`
	Seed        int64  `help:"Shoe RNG seed, 0 uses the current time"`
	AdminToken  string `env:"BLACKJACK_ADMIN_TOKEN" help:"Bearer token for the admin API"`
	DatabaseURL string `env:"DATABASE_URL" help:"Postgres DSN for audit event persistence"`
}

type VersionCmd struct{}

func (VersionCmd) Run() error {
	fmt.Println("blackjackd", version)
	return nil
}

func main() {
	// Local development reads flags from a .env file; missing is fine.
	_ = godotenv.Load()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("blackjackd"),
		kong.Description("Multiplayer blackjack casino server"),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run())
}

func (cmd *ServeCmd) Run() error {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
	if cmd.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	cfg, err := server.LoadServerConfig(cmd.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyOverrides(cfg, cmd)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if !cmd.Debug {
		if lvl, err := log.ParseLevel(cfg.Server.LogLevel); err == nil {
			logger.SetLevel(lvl)
		}
	}

	seed := cmd.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	var db *store.DB
	if cfg.Server.DatabaseURL != "" {
		db, err = store.Open(cfg.Server.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := db.Ping(migrateCtx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
		if err := store.Migrate(migrateCtx, db); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		defer db.Close(context.Background())
		logger.Info("audit persistence enabled")
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(cfg, logger, quartz.NewReal(), seed, db)

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return srv.Stop()
	})
	return g.Wait()
}

// applyOverrides lets flags and environment beat the config file.
func applyOverrides(cfg *server.ServerConfig, cmd *ServeCmd) {
	if cmd.Addr != "" {
		if host, portStr, err := net.SplitHostPort(cmd.Addr); err == nil {
			if port, err := strconv.Atoi(portStr); err == nil {
				cfg.Server.Address = host
				cfg.Server.Port = port
			}
		}
	}
	if cmd.AdminToken != "" {
		cfg.Server.AdminToken = cmd.AdminToken
	}
	if cmd.DatabaseURL != "" {
		cfg.Server.DatabaseURL = cmd.DatabaseURL
	}
}
