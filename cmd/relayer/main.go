package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apphttp "github.com/giankylabs/relayer/pkg/app/http"
	"github.com/giankylabs/relayer/pkg/auth"
	"github.com/giankylabs/relayer/pkg/chains"
	"github.com/giankylabs/relayer/pkg/config"
	"github.com/giankylabs/relayer/pkg/executor"
	"github.com/giankylabs/relayer/pkg/gas"
	"github.com/giankylabs/relayer/pkg/keys"
	"github.com/giankylabs/relayer/pkg/nft"
	"github.com/giankylabs/relayer/pkg/pgutil"
	rewardsvc "github.com/giankylabs/relayer/pkg/reward/service"
	"github.com/giankylabs/relayer/pkg/rewardstore"
	"github.com/giankylabs/relayer/pkg/service"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting gasless transaction relayer",
		zap.String("config", *configPath),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port))

	key, err := keys.KeySource{
		PrivateKeyHex:    cfg.Relayer.PrivateKey,
		EncryptedKeyFile: cfg.Relayer.EncryptedKeyFile,
		Passphrase:       cfg.Relayer.KeyPassphrase,
	}.Load()
	if err != nil {
		logger.Fatal("Failed to load relayer key", zap.Error(err))
	}
	relayer := crypto.PubkeyToAddress(key.PublicKey)
	logger.Info("Relayer identity loaded", zap.String("address", relayer.Hex()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	router, err := chains.NewRouter(ctx, cfg.Chains, relayer, cfg.Relayer.DefaultChainID, logger)
	if err != nil {
		logger.Fatal("Failed to connect chains", zap.Error(err))
	}
	defer router.Close()

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Connected to database",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database))

	policy := gas.NewPolicy(cfg.Gas)

	chainClients := make(map[int64]executor.Chain)
	for id, client := range router.All() {
		chainClients[id] = client
	}
	exec := executor.New(chainClients, key, policy, cfg.Relayer, logger)

	store := rewardstore.NewStore(db)
	publisher := nft.NewPublisher(cfg.IPFS, logger)
	rewards := rewardsvc.New(store, exec, router.Default(), publisher, cfg.Rewards, logger)

	issuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	svc := service.New(exec, rewards, issuer, service.RouterSource{Router: router}, policy, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	service.RegisterRoutes(r, svc, issuer, logger)

	if cfg.Monitoring.Enabled {
		go serveMetrics(cfg.Monitoring.MetricsPort, logger)
	}

	if err := apphttp.ServeAndWait(ctx, r, logger, &cfg.Server); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func serveMetrics(port int, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info("Metrics server listening", zap.String("address", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("Metrics server error", zap.Error(err))
	}
}
