package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/safar/go-marketplace/internal/auth"
	"github.com/safar/go-marketplace/internal/cache"
	"github.com/safar/go-marketplace/internal/config"
	"github.com/safar/go-marketplace/internal/database"
	"github.com/safar/go-marketplace/internal/handler"
	"github.com/safar/go-marketplace/internal/idgen"
	"github.com/safar/go-marketplace/internal/logger"
	"github.com/safar/go-marketplace/internal/models"
	"github.com/safar/go-marketplace/internal/server"
	"github.com/safar/go-marketplace/internal/store"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	defer log.Sync()

	app := &cli.App{
		Name:  "marketplace",
		Usage: "multi-vendor marketplace order service",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "start the HTTP API",
				Action: func(c *cli.Context) error {
					return serve(c.Context, cfg, log)
				},
			},
			{
				Name:  "migrate",
				Usage: "manage the database schema",
				Subcommands: []*cli.Command{
					{
						Name:  "up",
						Usage: "apply all pending migrations",
						Action: func(c *cli.Context) error {
							return withMigrator(cfg, func(m *database.Migrator) error {
								if err := m.Up(); err != nil {
									return err
								}
								log.Info("migrations applied")
								return nil
							})
						},
					},
					{
						Name:  "down",
						Usage: "roll back all migrations",
						Action: func(c *cli.Context) error {
							return withMigrator(cfg, func(m *database.Migrator) error {
								if err := m.Down(); err != nil {
									return err
								}
								log.Info("migrations rolled back")
								return nil
							})
						},
					},
					{
						Name:  "version",
						Usage: "print the current schema version",
						Action: func(c *cli.Context) error {
							return withMigrator(cfg, func(m *database.Migrator) error {
								version, dirty, err := m.Version()
								if err != nil {
									return err
								}
								fmt.Printf("version %d (dirty: %t)\n", version, dirty)
								return nil
							})
						},
					},
				},
			},
			{
				Name:  "user",
				Usage: "create a user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "role", Value: string(models.RoleCustomer)},
				},
				Action: func(c *cli.Context) error {
					db, err := database.NewConnection(&cfg.Database)
					if err != nil {
						return err
					}
					defer db.Close()

					user, err := store.CreateUser(c.Context, db, c.String("email"), c.String("name"), models.Role(c.String("role")))
					if err != nil {
						return err
					}
					fmt.Printf("created user %d (%s)\n", user.ID, user.Role)
					return nil
				},
			},
			{
				Name:  "token",
				Usage: "issue a bearer token for local testing",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "user", Required: true},
					&cli.StringFlag{Name: "role", Value: string(models.RoleCustomer)},
				},
				Action: func(c *cli.Context) error {
					issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
					token, err := issuer.GenerateToken(c.Int64("user"), models.Role(c.String("role")))
					if err != nil {
						return err
					}
					fmt.Println(token)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal("command failed", zap.Error(err))
	}
}

func withMigrator(cfg *config.Config, fn func(*database.Migrator) error) error {
	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := database.NewMigrator(db)
	if err != nil {
		return err
	}
	return fn(m)
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := idgen.SetNode(cfg.Server.NodeID); err != nil {
		return fmt.Errorf("init invoice numbers: %w", err)
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return err
	}

	vendorCache, closeCache, err := newVendorCache(ctx, cfg.Redis, log)
	if err != nil {
		return err
	}
	defer closeCache()

	h := handler.New(db, vendorCache, cfg.Checkout)
	router := server.NewRouter(cfg.Server, h, auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL), log)
	srv := server.New(cfg.Server, router)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eg, groupCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		log.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		<-groupCtx.Done()
		log.Info("server stopping")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("server stopped")
	return nil
}

func newVendorCache(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (cache.VendorCache, func(), error) {
	if cfg.URL == "" {
		log.Info("using in-process vendor cache")
		return cache.NewMemory(cfg.CacheTTL), func() {}, nil
	}

	rc, err := cache.NewRedis(ctx, cfg.URL, cfg.CacheTTL)
	if err != nil {
		return nil, nil, err
	}
	log.Info("using redis vendor cache")
	return rc, func() {
		if err := rc.Close(); err != nil {
			log.Warn("close redis", zap.Error(err))
		}
	}, nil
}
