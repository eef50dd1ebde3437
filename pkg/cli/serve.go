package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hooksink/hooksink/pkg/config"
	"github.com/hooksink/hooksink/pkg/engine"
	"github.com/hooksink/hooksink/pkg/logging"
)

var (
	servePort           int
	serveConfigFile     string
	serveCallbackServer string
	serveUI             bool
	serveWatch          bool
	serveLogLevel       string
	serveLogFormat      string
	serveLogCapacity    int
	serveWebhookTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP sink",
	Long: `Start the HTTP sink with the given endpoint configuration.

The sink listens on one port, matches every inbound request against the
configured rules, answers immediately, and runs any configured webhook
sequence in the background.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.New(logging.Config{
			Level:  logging.ParseLevel(serveLogLevel),
			Format: logging.ParseFormat(serveLogFormat),
		})

		cfg, err := config.LoadFromFile(serveConfigFile)
		if err != nil {
			return fmt.Errorf("loading %s: %w", serveConfigFile, err)
		}
		if serveCallbackServer != "" {
			cfg.SetCallbackServer(serveCallbackServer)
		}

		srv := engine.NewServer(cfg,
			engine.WithLogger(log),
			engine.WithPort(servePort),
			engine.WithUI(serveUI),
			engine.WithLogCapacity(serveLogCapacity),
			engine.WithWebhookTimeout(serveWebhookTimeout))

		if err := srv.Start(); err != nil {
			return err
		}

		fmt.Printf("hooksink listening on http://localhost:%d (%d rules)\n", srv.Port(), len(cfg.Endpoints))
		if serveUI {
			fmt.Printf("manual calling UI at http://localhost:%d/manual_calling\n", srv.Port())
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		reload := func() {
			next, err := config.LoadFromFile(serveConfigFile)
			if err != nil {
				// Keep serving the last good configuration.
				log.Error("config reload failed", "file", serveConfigFile, "error", err)
				return
			}
			if serveCallbackServer != "" {
				next.SetCallbackServer(serveCallbackServer)
			}
			srv.SetConfig(next)
		}

		changes := make(chan struct{}, 1)
		if serveWatch {
			go watchFile(ctx, serveConfigFile, changes, log)
		}

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)

		for {
			select {
			case <-stop:
				log.Info("shutting down")
				return srv.Stop()
			case <-hup:
				log.Info("reloading configuration on SIGHUP")
				reload()
			case <-changes:
				log.Info("configuration file changed, reloading", "file", serveConfigFile)
				reload()
			}
		}
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", engine.DefaultPort, "Port to listen on")
	serveCmd.Flags().StringVarP(&serveConfigFile, "config", "f", "endpoints.yaml", "Endpoint configuration file (YAML or JSON)")
	serveCmd.Flags().StringVarP(&serveCallbackServer, "callback-url", "c", "", "Override the config callback_server URL")
	serveCmd.Flags().BoolVar(&serveUI, "ui", false, "Serve the manual calling UI at /manual_calling")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Reload the configuration when the file changes")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&serveLogFormat, "log-format", "text", "Log format (text, json)")
	serveCmd.Flags().IntVar(&serveLogCapacity, "log-capacity", 0, "Request history entries to retain (default 1000)")
	serveCmd.Flags().DurationVar(&serveWebhookTimeout, "webhook-timeout", 0, "Outbound webhook timeout (default 30s)")
	rootCmd.AddCommand(serveCmd)
}
