package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/loganszeto/udpkv/internal/buildinfo"
	"github.com/loganszeto/udpkv/internal/config"
	"github.com/loganszeto/udpkv/internal/logging"
	"github.com/loganszeto/udpkv/internal/persistence"
	"github.com/loganszeto/udpkv/internal/pidfile"
	"github.com/loganszeto/udpkv/internal/server"
	"github.com/loganszeto/udpkv/internal/stats"
	"github.com/loganszeto/udpkv/internal/store"
)

const httpShutdownTimeout = 5 * time.Second

var configFile string

var rootCmd = &cobra.Command{
	Use:           "udp-server",
	Short:         "UDP key/value service",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "udp-server %s\n", buildinfo.String())
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&configFile, "config", "c", "", "config file (toml, yaml or json)")
	flags.String("host", "0.0.0.0", "listen host")
	flags.Int("port", 22200, "listen port")
	flags.Int("buffer-size", server.DefaultBufferSize, "largest accepted datagram in bytes")
	flags.String("data-folder", "./data", "directory loaddb/savedb paths are confined to")
	flags.String("data-file", "", "snapshot to load at startup, relative to data-folder")
	flags.String("pid-file", "udp-service.pid", "pid file path")
	flags.String("http-addr", "", "websocket, metrics and health listener (empty disables)")
	flags.String("log-level", "info", "debug, info, warn or error")
	flags.String("log-file", "", "base name for rotating log files")
	rootCmd.AddCommand(versionCmd)
}

func run(cmd *cobra.Command, _ []string) error {
	config.LoadEnvFiles(".")
	cfg, err := config.LoadServer(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log, os.Stdout)
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger.Info("starting", zap.String("version", buildinfo.String()), zap.String("name", cfg.Name))
	logger.Debug("configuration", zap.String("config", cfg.String()))

	st := store.NewDataStore(store.Options{
		Backend:   persistence.NewRouter(cfg.DataFolder),
		IOTimeout: cfg.StoreTimeout,
	})
	if cfg.DataFile != "" {
		n, err := st.LoadDB(cfg.DataFile)
		if err != nil {
			logger.Warn("preload failed, starting empty", zap.String("file", cfg.DataFile), zap.Error(err))
		} else {
			logger.Info("preloaded", zap.String("file", cfg.DataFile), zap.Int("records", n))
		}
	}

	s := stats.New(time.Now())
	reg := prometheus.NewRegistry()
	reg.MustRegister(s)

	disp := server.NewDispatcher(st, s, server.DispatcherOptions{
		Version: buildinfo.Version,
		Logger:  logger,
	})
	srv := server.New(server.Config{Addr: cfg.SocketAddress(), BufferSize: cfg.BufferSize}, disp, s, logger)

	if err := srv.Listen(); err != nil {
		_ = st.Close()
		logger.Error("bind failed", zap.Error(err))
		return err
	}

	if err := pidfile.Write(cfg.PIDFile); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	srv.OnShutdown(func() {
		if err := pidfile.Remove(cfg.PIDFile); err != nil {
			logger.Warn("remove pid file", zap.Error(err))
		}
	})
	srv.OnShutdown(func() {
		if err := st.Close(); err != nil {
			logger.Warn("close store", zap.Error(err))
		}
	})

	if cfg.HTTPAddr != "" {
		httpSrv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           server.NewHTTPHandler(server.NewWSHandler(disp, cfg.BufferSize, logger), reg, logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server", zap.Error(err))
			}
		}()
		srv.OnShutdown(func() {
			ctx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
			defer cancel()
			_ = httpSrv.Shutdown(ctx)
		})
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := srv.Serve(ctx); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return err
	}
	logger.Info("stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
