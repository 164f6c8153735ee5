package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aegisfs/aegisfs/pkg/blockstore"
	"github.com/aegisfs/aegisfs/pkg/config"
	"github.com/aegisfs/aegisfs/pkg/datanode"
	"github.com/aegisfs/aegisfs/pkg/log"
	"github.com/aegisfs/aegisfs/pkg/mds"
	"github.com/aegisfs/aegisfs/pkg/mdsrpc"
	"github.com/aegisfs/aegisfs/pkg/metrics"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "aegisfs",
	Short:   "AegisFS - block-sharded distributed file system",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("aegisfs version %s (%s)\n", Version, Commit))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("config", "", "Path to config.json (overrides AEGISFS_CONFIG)")
	rootCmd.PersistentFlags().String("metrics-addr", "127.0.0.1:9100", "Address to serve /metrics on")

	mdsCmd.Flags().String("host", config.DefaultMDSHost, "Bind host")
	mdsCmd.Flags().Int("port", config.DefaultMDSPort, "Bind port")
	datanodeCmd.Flags().String("host", config.DefaultDataNodeHost, "Bind host")
	datanodeCmd.Flags().Int("port", config.DefaultDataNodePort, "Bind port")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(mdsCmd)
	rootCmd.AddCommand(datanodeCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func serveMetrics(addr string) {
	logger := log.WithComponent("metrics")
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	logger.Info().Str("addr", addr).Msg("metrics endpoint listening")
}

var mdsCmd = &cobra.Command{
	Use:   "mds",
	Short: "Run the metadata server",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := log.WithComponent("mds")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("aegisfs: failed to load config: %w", err)
		}

		host, _ := cmd.Flags().GetString("host")
		port, _ := cmd.Flags().GetInt("port")

		state, err := mds.Open(cfg.JournalFile, cfg.MetadataFile)
		if err != nil {
			return fmt.Errorf("aegisfs: failed to open mds state: %w", err)
		}

		addr := fmt.Sprintf("%s:%d", host, port)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("aegisfs: failed to listen on %s: %w", addr, err)
		}

		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
		serveMetrics(metricsAddr)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		srv := mdsrpc.NewServer(state)
		errCh := make(chan error, 1)
		go func() {
			if err := srv.Serve(ctx, ln); err != nil {
				errCh <- err
			}
		}()

		logger.Info().Str("addr", addr).Msg("mds running, press Ctrl+C to stop")

		select {
		case <-sigChOrDone():
			logger.Info().Msg("shutting down")
		case err := <-errCh:
			return fmt.Errorf("aegisfs: mds server error: %w", err)
		}

		cancel()
		return nil
	},
}

var datanodeCmd = &cobra.Command{
	Use:   "datanode",
	Short: "Run a block storage node",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := log.WithComponent("datanode")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("aegisfs: failed to load config: %w", err)
		}

		host, _ := cmd.Flags().GetString("host")
		port, _ := cmd.Flags().GetInt("port")

		store, err := blockstore.New(filepath.Clean(cfg.DataDir))
		if err != nil {
			return fmt.Errorf("aegisfs: failed to open block store: %w", err)
		}

		addr := fmt.Sprintf("%s:%d", host, port)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("aegisfs: failed to listen on %s: %w", addr, err)
		}

		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
		serveMetrics(metricsAddr)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		srv := datanode.NewServer(store)
		errCh := make(chan error, 1)
		go func() {
			if err := srv.Serve(ctx, ln); err != nil {
				errCh <- err
			}
		}()

		logger.Info().Str("addr", addr).Msg("datanode running, press Ctrl+C to stop")

		select {
		case <-sigChOrDone():
			logger.Info().Msg("shutting down")
		case err := <-errCh:
			return fmt.Errorf("aegisfs: datanode server error: %w", err)
		}

		cancel()
		return nil
	},
}

func sigChOrDone() <-chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	return sigCh
}
