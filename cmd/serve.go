package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"credential-hub/internal/config"
	"credential-hub/internal/metrics"
	"credential-hub/internal/registry"
	"credential-hub/internal/server"
	"credential-hub/internal/signing"
	"credential-hub/pkg/crypto/gabiengine"
	"credential-hub/pkg/dispatch"
	"credential-hub/pkg/issuer"
	"credential-hub/pkg/prover"
	"credential-hub/pkg/verifier"
)

const serverSigningKeyRef signing.KeyRef = "server"

func newServeCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP message dispatcher",
		Long:  `Starts an HTTP server that routes issuer, prover and verifier protocol messages through pkg/dispatch.`,
		Run: func(cmd *cobra.Command, args []string) {
			logger, ctx, cancel := setupCommand(cmd.Context())
			defer cancel()

			if configFile != "" {
				loadedCfg, err := config.LoadFromFile(configFile)
				if err != nil {
					logger.Error("failed to load configuration", err)
					fmt.Printf("Error loading configuration: %s\n", err)
					os.Exit(1)
				}
				cfg = loadedCfg
			}

			var backend registry.Backend
			switch cfg.Registry.Backend {
			case "file":
				fileBackend, err := registry.NewFileBackend(config.ExpandHomeDir(cfg.Registry.Directory))
				if err != nil {
					logger.Error("failed to open registry directory", err)
					os.Exit(1)
				}
				backend = fileBackend
			default:
				backend = registry.NewMemoryBackend()
			}
			reg := registry.New(backend, logger)

			signer := signing.NewSigner()
			if err := signer.GenerateKey(serverSigningKeyRef); err != nil {
				logger.Error("failed to generate server signing key", err)
				os.Exit(1)
			}

			engine := gabiengine.New()
			metricsRegistry := metrics.NewProcessRegistry()

			iss := issuer.New(engine, signer, reg)
			iss.Metrics = metricsRegistry
			ver := verifier.New(engine, signer)
			ver.Metrics = metricsRegistry

			d := dispatch.New(iss, prover.New(engine), ver, reg, logger)

			logger.WithFields(map[string]interface{}{
				"port":             cfg.Server.Port,
				"registry_backend": cfg.Registry.Backend,
			}).Info("starting credential-hub server")

			srv := server.New(ctx, cfg, logger, d, metricsRegistry)
			if err := srv.Start(); err != nil {
				logger.Error("server failed", err)
				os.Exit(1)
			}
		},
	}

	cfg.AddServerFlags(cmd)
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Configuration file path")

	return cmd
}
