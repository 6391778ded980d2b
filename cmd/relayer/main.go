// Command relayer boots the relayer core components (C1-C9) and their
// ambient services (logging, metrics, circuit breakers, balance
// monitoring) from an operator's YAML and signer-pool TOML
// configuration files. It does not speak JSON-RPC or HTTP on its own;
// wiring a transport on top of *relayer.App is left to the embedder,
// same as pkg/cedros.App is consumed by CedrosPay's own server.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/kora-labs/relayer/internal/relayconfig"
	"github.com/kora-labs/relayer/pkg/relayer"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the operator YAML configuration")
	signerConfigPath := flag.String("signers", "signers.toml", "path to the signer pool TOML configuration")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("relayer: error loading .env file")
	}

	cfg, err := relayconfig.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("relayer: load configuration")
	}
	signerCfg, err := relayconfig.LoadSignerPoolConfig(*signerConfigPath)
	if err != nil {
		log.Fatal().Err(err).Msg("relayer: load signer pool configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := relayer.NewApp(ctx, *cfg, *signerCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("relayer: build app")
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Error().Err(err).Msg("relayer: shutdown")
		}
	}()

	log.Info().
		Int("signers", len(app.Signers.Entries())).
		Str("price_source", string(cfg.Validation.PriceSource)).
		Msg("relayer: ready")

	<-ctx.Done()
	log.Info().Msg("relayer: shutting down")
}
