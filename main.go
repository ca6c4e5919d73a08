package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rolecenter/auth"
	"rolecenter/config"
	"rolecenter/controllers"
	"rolecenter/database"
	grpcserver "rolecenter/grpc_server"
	"rolecenter/metrics"
	"rolecenter/registry"
	"rolecenter/repositories"
	"rolecenter/server"
	"rolecenter/services"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"gorm.io/gorm"
)

var configFile string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "rolecenter",
		Short:        "Role administration service",
		SilenceUsage: true,
		RunE:         serveCommandFunc,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./config.yaml or ./config/config.yaml)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP and gRPC servers",
			RunE:  serveCommandFunc,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Migrate the schema and seed the bootstrap roles and administrator",
			RunE:  migrateCommandFunc,
		},
	)
	return root
}

func newLogger(level string) (*zap.Logger, error) {
	switch level {
	case "debug":
		return zap.NewDevelopment()
	default:
		cfg := zap.NewProductionConfig()
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log.level %q: %w", level, err)
		}
		cfg.Level = lvl
		return cfg.Build()
	}
}

// setup loads the config and opens a migrated, seeded database.
func setup(ctx context.Context) (config.Config, *zap.Logger, *gorm.DB, error) {
	cfg, err := config.Load(config.NewViper(configFile))
	if err != nil {
		return cfg, nil, nil, err
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return cfg, nil, nil, err
	}
	if cfg.JWT.Secret == config.DefaultJWTSecret {
		logger.Warn("Using the default JWT secret, accepted only at log.level debug")
	}

	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		return cfg, logger, nil, err
	}
	if err := database.Migrate(db); err != nil {
		return cfg, logger, nil, err
	}
	if err := database.SeedInitialData(ctx, db, cfg.Bootstrap, logger.Sugar()); err != nil {
		return cfg, logger, nil, fmt.Errorf("seeding initial data: %w", err)
	}
	return cfg, logger, db, nil
}

func migrateCommandFunc(cmd *cobra.Command, args []string) error {
	_, logger, _, err := setup(cmd.Context())
	if logger != nil {
		defer logger.Sync() // Make sure the buffer is flushed before the program exits
	}
	if err != nil {
		return err
	}
	logger.Info("Database migrated")
	return nil
}

func serveCommandFunc(cmd *cobra.Command, args []string) error {
	cfg, logger, db, err := setup(cmd.Context())
	if logger != nil {
		defer logger.Sync()
	}
	if err != nil {
		return err
	}
	return serve(cmd.Context(), cfg, logger, db)
}

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger, db *gorm.DB) error {
	tokens := auth.NewTokenManager(cfg.JWT)
	roleRepo := repositories.NewRoleRepository(db)
	userRepo := repositories.NewUserRepository(db)
	roleService := services.NewRoleService(services.NewIdentityStore(roleRepo, userRepo))
	accountService := services.NewAccountService(userRepo, roleRepo, tokens)

	httpServer := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: server.NewContainer(server.Deps{
			Config:   cfg,
			DB:       db,
			Roles:    roleService,
			Accounts: accountService,
			Tokens:   tokens,
			Metrics:  metrics.New(),
			Logger:   logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Bind both ports before anything is served so a failed bind leaves nothing running.
	httpLis, err := net.Listen("tcp", httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen for HTTP: %w", err)
	}
	var grpcLis net.Listener
	if cfg.GRPC.Enabled {
		grpcLis, err = net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPC.Port))
		if err != nil {
			_ = httpLis.Close()
			return fmt.Errorf("failed to listen for gRPC: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("addr", httpLis.Addr().String()), zap.String("base_path", cfg.HTTP.BasePath))
		if err := httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	var grpcServer *grpc.Server
	var healthServer *health.Server
	if grpcLis != nil {
		grpcServer, healthServer = grpcserver.NewServer(grpcserver.Options{
			Roles:      roleService,
			Accounts:   accountService,
			Tokens:     tokens,
			AdminRoles: controllers.RoleAdminRoles,
			Logger:     logger,
		})
		g.Go(func() error {
			logger.Info("gRPC server listening", zap.String("addr", grpcLis.Addr().String()))
			return grpcServer.Serve(grpcLis)
		})
	}

	deregister := announce(cfg, logger.Sugar())

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		deregister()
		if healthServer != nil {
			healthServer.Shutdown()
		}
		if grpcServer != nil {
			grpcServer.GracefulStop()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// announce registers the HTTP and gRPC endpoints with Consul when enabled.
// Registration failures are logged; the service keeps running without discovery.
func announce(cfg config.Config, logger *zap.SugaredLogger) func() {
	noop := func() {}
	if !cfg.Consul.Enabled {
		return noop
	}

	reg, err := registry.NewConsulRegistry(cfg.Consul, logger)
	if err != nil {
		logger.Warnw("Consul registration skipped", "error", err)
		return noop
	}

	host := cfg.Consul.ServiceHost
	httpID := registry.InstanceID(cfg.ServiceName+"-http", host, cfg.HTTP.Port)
	instances := []registry.Instance{{
		ID:    httpID,
		Name:  cfg.ServiceName + "-http",
		Port:  cfg.HTTP.Port,
		Tags:  []string{"http", "rest"},
		Check: registry.CreateHTTPCheck(httpID, host, cfg.HTTP.Port, "/healthz", "10s", "2s"),
	}}
	if cfg.GRPC.Enabled {
		grpcID := registry.InstanceID(cfg.ServiceName+"-grpc", host, cfg.GRPC.Port)
		instances = append(instances, registry.Instance{
			ID:    grpcID,
			Name:  cfg.ServiceName + "-grpc",
			Port:  cfg.GRPC.Port,
			Tags:  []string{"grpc"},
			Check: registry.CreateGRPCCheck(grpcID, fmt.Sprintf("%s:%d", host, cfg.GRPC.Port), "10s", "2s", false),
		})
	}

	deregister, err := registry.Announce(reg, host, instances, logger)
	if err != nil {
		logger.Warnw("Consul registration failed", "error", err)
		return noop
	}
	return deregister
}
