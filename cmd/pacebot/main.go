// Pacebot - Telegram trading bot for on-chain perps
//
// Users chat with the bot to open leveraged positions on a perps DEX. Each
// user gets a custodial wallet; every transaction is sponsored, so users
// never hold gas. The bot builds transactions locally, has the custodian
// sign as sender, co-signs as fee payer, and submits to the fullnode.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pacetrade/pacebot/internal/bot"
	"github.com/pacetrade/pacebot/internal/chain"
	"github.com/pacetrade/pacebot/internal/config"
	"github.com/pacetrade/pacebot/internal/database"
	"github.com/pacetrade/pacebot/internal/marketdata"
	"github.com/pacetrade/pacebot/internal/signer"
)

const version = "1.0.0"

func main() {
	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load environment
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().
		Str("version", version).
		Str("node", cfg.NodeURL).
		Msg("🚀 Pacebot starting...")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// Custodial signer
	custodian, err := signer.New(signer.Config{
		BaseURL:        cfg.SignerBaseURL,
		OrganizationID: cfg.SignerOrganizationID,
		APIPublicKey:   cfg.SignerAPIPublicKey,
		APIPrivateKey:  cfg.SignerAPIPrivateKey,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize custodial signer")
	}

	// Fullnode client and sponsored transaction pipeline
	node, err := chain.NewClient(cfg.NodeURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to fullnode")
	}
	pipeline, err := chain.NewService(node, custodian, cfg.SponsorKey, chain.ServiceConfig{
		MaxGasAmount: uint64(cfg.MaxGasAmount),
		GasUnitPrice: uint64(cfg.GasUnitPrice),
		TxnExpiry:    cfg.TxnExpiry,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize transaction pipeline")
	}

	// Market data cache with background refresh
	markets := marketdata.NewStore()
	poller := marketdata.NewPoller(cfg.MarketsAPIURL, markets, cfg.MarketRefreshInterval)
	go poller.Run(ctx)
	log.Info().
		Str("url", cfg.MarketsAPIURL).
		Dur("interval", cfg.MarketRefreshInterval).
		Msg("📊 Market data poller started")

	// Telegram bot
	tgBot, err := bot.New(cfg, db, pipeline, markets)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start Telegram bot")
	}
	tgBot.Start()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("Shutting down...")
	tgBot.Stop()
	cancel()
}
