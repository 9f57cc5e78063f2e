package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/restq/restq/pkg/entity"
	"github.com/restq/restq/pkg/httputil"
	mw "github.com/restq/restq/pkg/httputil/middleware"
	"github.com/restq/restq/pkg/metrics"
	restqpgx "github.com/restq/restq/pkg/pgx"
	"github.com/restq/restq/pkg/rest"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Serves every configured entity as CRUD endpoints over its PostgreSQL table`,
	Run:   runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringP("server.listenAddr", "l", "", "HTTP listen address")
	f.String("server.baseURL", "", "base URL the API is advertised under")
	f.Bool("metrics.enabled", false, "serve Prometheus metrics")

	viper.BindPFlags(f)
	rootCmd.AddCommand(serveCmd)
}

func buildLogger(level string) *zap.Logger {
	if level == "none" {
		return zap.NewNop()
	}
	zapCfg := zap.NewProductionConfig()
	if parsed, err := zap.ParseAtomicLevel(level); err == nil {
		zapCfg.Level = parsed
	}
	return zap.Must(zapCfg.Build())
}

func runServe(cmd *cobra.Command, args []string) {
	logger := buildLogger(logLevel)
	defer logger.Sync() //nolint:errcheck

	if cfg == nil {
		logger.Fatal("configuration not loaded")
	}

	// flag overrides
	if addr := viper.GetString("server.listenAddr"); addr != "" {
		cfg.Server.ListenAddr = addr
	}
	if viper.GetBool("metrics.enabled") {
		cfg.Metrics.Enabled = true
	}

	if len(cfg.Postgres) == 0 {
		logger.Fatal("at least one postgres pool must be configured")
	}
	if len(cfg.Entities) == 0 {
		logger.Fatal("no entities configured")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pools := restqpgx.NewPoolManager()
	defer pools.Close()
	for _, pc := range cfg.Postgres {
		if err := pools.Add(ctx, restqpgx.Pool{Name: pc.Name, ConnString: pc.ConnString}, pc.Active); err != nil {
			logger.Fatal("failed to connect pool", zap.String("pool", pc.Name), zap.Error(err))
		}
		logger.Info("pool connected", zap.String("pool", pc.Name))
	}

	registry, err := entity.NewRegistry(cfg.Entities...)
	if err != nil {
		logger.Fatal("invalid entity configuration", zap.Error(err))
	}

	var opts []httputil.RouterOptions
	if cfg.Server.TLS.Enabled {
		opts = append(opts, httputil.WithTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile))
	}
	router := httputil.NewRouter(opts...)

	// middleware wraps in registration order, so auth runs before logging
	router.Use(mw.RequestID)
	if cfg.Server.CORS {
		router.Use(mw.CORSWithOptions(nil))
	}
	if len(cfg.Server.BasicAuth) > 0 {
		router.Use(mw.VerifyBasicAuth(mw.BasicAuthCreds(cfg.Server.BasicAuth)))
	}
	if logLevel != "none" {
		router.Use(mw.LoggerWithOptions(&mw.LoggerOptions{Logger: logger}))
	}

	rest.NewServer(registry, pools, rest.WithLogger(logger)).Mount(router)

	var wg sync.WaitGroup
	if cfg.Metrics.Enabled {
		metrics.StartPrometheusServer(ctx, &wg, &metrics.PromServerOpts{Addr: cfg.Metrics.ListenAddr})
	}

	// Handle graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := router.ListenAndServe(cfg.Server.ListenAddr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()
	logger.Info("serving entities",
		zap.Int("entities", len(cfg.Entities)),
		zap.String("addr", cfg.Server.ListenAddr),
	)

	<-stop
	logger.Info("shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := router.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	wg.Wait()
	logger.Info("server stopped")
}
