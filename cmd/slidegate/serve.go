package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/slidegate-dev/slidegate/internal/config"
	"github.com/slidegate-dev/slidegate/internal/web"
	"github.com/slidegate-dev/slidegate/pkg/convert"
	"github.com/slidegate-dev/slidegate/pkg/upload"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		addr       string
		backendURL string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway",
		Long: `Start the SlideGate gateway: upload page, relay to the conversion
backend, staged downloads, event feed, health and metrics endpoints.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Address = addr
			}
			if backendURL != "" {
				cfg.BackendURL = backendURL
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log := slog.New(slog.NewTextHandler(os.Stderr, nil))

			store, err := newStore(cfg)
			if err != nil {
				return err
			}

			converter := convert.NewClient(convert.Config{BackendURL: cfg.BackendURL})
			server := web.NewServer(cfg, log, store, converter)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			printBanner()
			return server.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.FileName, "Path to the configuration file")
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (overrides config)")
	cmd.Flags().StringVarP(&backendURL, "backend", "b", "", "Conversion backend URL (overrides config)")

	return cmd
}

// newStore builds the spool store selected by the configuration.
func newStore(cfg *config.Config) (upload.Store, error) {
	switch cfg.Spool.Backend {
	case "disk":
		return upload.NewDiskStore(cfg.Spool.Dir, cfg.MaxUploadBytes())
	case "s3":
		client := s3.New(s3.Options{Region: cfg.Spool.Region})
		return upload.NewS3Store(client, cfg.Spool.Bucket, cfg.Spool.Prefix, cfg.MaxUploadBytes()), nil
	default:
		return nil, fmt.Errorf("unknown spool backend %q", cfg.Spool.Backend)
	}
}
