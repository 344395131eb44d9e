package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/machaonweb/machaonweb/pkg/admission"
	"github.com/machaonweb/machaonweb/pkg/config"
	"github.com/machaonweb/machaonweb/pkg/log"
	"github.com/machaonweb/machaonweb/pkg/rest"
	"github.com/machaonweb/machaonweb/pkg/scheduler"
	"github.com/machaonweb/machaonweb/pkg/store"
	"github.com/machaonweb/machaonweb/pkg/transport"
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
	Use:   "machaonweb",
	Short: "MachaonWeb - root coordinator of the protein comparison network",
	Long: `MachaonWeb coordinates a distributed network of computing nodes that
compare protein structures. The root node admits user requests, assigns
jobs to nodes over mutual TLS, collects and verifies their results and
keeps every node's feature cache up to date.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"MachaonWeb version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

// initLogging configures the global logger from the environment. When a log
// directory is set the logs go to a daily file in JSON form.
func initLogging(cfg *config.Config) error {
	logCfg := log.Config{Level: log.Level(os.Getenv("LOG_LEVEL"))}
	if cfg.LogDir != "" {
		out, err := log.FileOutput(cfg.LogDir)
		if err != nil {
			return err
		}
		logCfg.Output = out
		logCfg.JSONOutput = true
	}
	log.Init(logCfg)
	return nil
}

func openStore(cfg *config.Config) (*store.Store, error) {
	s, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %v", err)
	}
	return s, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the coordinator",
	Long: `Run the coordinator: the three scheduling loops and the HTTPS
endpoint serving the frontend and the REST API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := initLogging(cfg); err != nil {
			return err
		}

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		dialer := scheduler.TransportDialer{
			Factory: transport.NewFactory(cfg.MTLSCertsPath),
		}
		monitor, err := scheduler.NewMonitor(st, dialer, scheduler.Config{
			RootDir:         cfg.MonitorPath,
			OutputDir:       cfg.OutputPath,
			RequestInterval: cfg.RequestMonitoringInterval,
			JobInterval:     cfg.JobMonitoringInterval,
			SyncInterval:    cfg.NodeSyncInterval,
		})
		if err != nil {
			return err
		}
		monitor.Start()
		log.Info("scheduler loops started")

		admitter := admission.NewService(st, admission.NewRecaptchaVerifier(cfg.CaptchaSecret))
		server := rest.NewServer(st, admitter, rest.Config{
			IP:           cfg.WebServerIP,
			Port:         cfg.WebServerPort,
			SSLCertsPath: cfg.SSLCertsPath,
			FrontendPath: cfg.FrontendPath,
			OutputPath:   cfg.OutputPath,
			CORSURLs:     cfg.CORSURLs,
		})

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.ListenAndServe()
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			log.Info(fmt.Sprintf("received %s, shutting down", sig))
		case err := <-errCh:
			log.Errorf("web server failed", err)
			monitor.Stop()
			return err
		}

		monitor.Stop()
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := initLogging(cfg); err != nil {
			return err
		}

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(); err != nil {
			return err
		}
		fmt.Println("✓ Schema is up to date")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed <structure-dir>",
	Short: "Register the structure files of a directory as cached features",
	Long: `Scan a directory of structure files and register their identifiers
in the cached feature table, so that admission can tell cached and
uncached candidates apart.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := initLogging(cfg); err != nil {
			return err
		}

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		ids, err := store.CachedIDsFromDir(args[0])
		if err != nil {
			return err
		}
		if err := st.InsertCachedIDs(ids); err != nil {
			return err
		}
		fmt.Printf("✓ Registered %d structure identifiers\n", len(ids))
		return nil
	},
}
