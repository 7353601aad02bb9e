package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cuemby/kvault/internal/config"
	"github.com/cuemby/kvault/pkg/apiclient"
	"github.com/cuemby/kvault/pkg/log"
	"github.com/cuemby/kvault/pkg/metrics"
	"github.com/cuemby/kvault/pkg/orchestrator"
	"github.com/cuemby/kvault/pkg/schema"
	"github.com/cuemby/kvault/pkg/snapshotmgr"
	"github.com/cuemby/kvault/pkg/storage"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "kvault",
	Short:   "kvault backs up and restores Keycloak realm configuration",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("kvault version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("config", "./config", "Directory holding services.yaml or <service>.json files")
	rootCmd.PersistentFlags().String("server-port", "9090", "Port for the metrics/health HTTP server")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(serveCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

// buildOrchestrator loads configuration, wires one apiclient.Client per
// configured service (all services share one schema.Registry), and composes
// an orchestrator.Orchestrator bound to the first loaded service's storage
// backend. kvault backs up a single realm family per invocation; multiple
// distinct storage backends in one config directory is unsupported — every
// service shares the backend of cfg.Services[0]. Services read from
// services.yaml come from a map, so which of them is first is not fixed.
func buildOrchestrator(cmd *cobra.Command) (*orchestrator.Orchestrator, error) {
	configDir := config.ConfigPath(mustFlagString(cmd, "config"))
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, err
	}

	registry, err := schema.Default()
	if err != nil {
		return nil, fmt.Errorf("building schema registry: %w", err)
	}

	var backend storage.Backend
	services := make([]snapshotmgr.ServiceConfig, 0, len(cfg.Services))
	for i, svc := range cfg.Services {
		client, err := apiclient.New(apiclient.Config{
			AuthURL:      svc.Keycloak.Auth.AuthURL,
			Realm:        svc.Keycloak.Auth.Realm,
			ClientID:     svc.Keycloak.Auth.ClientID,
			ClientSecret: svc.Keycloak.Auth.ClientSecret,
			VerifySSL:    svc.Keycloak.Auth.VerifySSL,
		})
		if err != nil {
			return nil, fmt.Errorf("service %q: %w", svc.Name, err)
		}

		if i == 0 {
			backend, err = buildBackend(svc.Storage)
			if err != nil {
				return nil, fmt.Errorf("service %q: %w", svc.Name, err)
			}
		}

		services = append(services, snapshotmgr.ServiceConfig{
			Name:     svc.Name,
			Type:     "Serial",
			Version:  "1.0",
			Realm:    svc.Keycloak.Auth.Realm,
			Client:   client,
			Registry: registry,
		})
	}

	manager, err := snapshotmgr.NewManager(backend, services)
	if err != nil {
		metrics.RegisterComponent("storage", false, err.Error())
		return nil, fmt.Errorf("constructing snapshot manager: %w", err)
	}
	metrics.RegisterComponent("storage", true, "ready")
	metrics.RegisterComponent("apiclient", true, "ready")

	return orchestrator.New(manager, services)
}

func buildBackend(cfg config.StorageConfig) (storage.Backend, error) {
	switch cfg.Type {
	case "s3":
		return storage.NewS3(context.Background(), storage.S3Config{
			Region:          cfg.S3.Region,
			AccessKeyID:     cfg.S3.AWSAccessKeyID,
			SecretAccessKey: cfg.S3.AWSSecretAccessKey,
			Endpoint:        cfg.S3.Endpoint,
		})
	default:
		return storage.NewLocal(cfg.Local.BaseDir)
	}
}

func mustFlagString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve Prometheus metrics and health endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		port := config.ServerPort(mustFlagString(cmd, "server-port"))
		addr := "127.0.0.1:" + port

		http.Handle("/metrics", metrics.Handler())
		http.Handle("/health", metrics.HealthHandler())
		http.Handle("/ready", metrics.ReadyHandler())
		http.Handle("/live", metrics.LivenessHandler())

		errCh := make(chan error, 1)
		go func() {
			if err := http.ListenAndServe(addr, nil); err != nil {
				errCh <- err
			}
		}()
		fmt.Printf("metrics endpoint: http://%s/metrics\n", addr)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sigCh:
			fmt.Println("shutting down")
			return nil
		case err := <-errCh:
			return err
		}
	},
}
