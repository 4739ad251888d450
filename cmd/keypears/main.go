package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"keypears/internal/config"
	"keypears/internal/entropy"
	"keypears/internal/federation"
	"keypears/internal/observability/logging"
	"keypears/internal/observability/metrics"
	"keypears/internal/pow"
	"keypears/internal/service"
	"keypears/internal/store"
	transport "keypears/internal/transport/http"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}
	logger := logging.NewLogger(logging.Config{
		ServiceName: "keypears",
		Environment: env,
	})
	slog.SetDefault(logger)
	metrics.MustRegister()

	cfg := config.Load()

	ent, err := entropy.Parse(cfg.DerivationEntropy)
	if err != nil {
		logger.Error("derivation entropy", "error", err)
		os.Exit(1)
	}

	db, err := openDB(cfg)
	if err != nil {
		logger.Error("gorm open", "error", err, "driver", cfg.DatabaseDriver)
		os.Exit(1)
	}
	st := store.New(db)
	if err := st.AutoMigrate(context.Background()); err != nil {
		logger.Error("auto migrate", "error", err)
		os.Exit(1)
	}

	hasher := service.NewLoginKeyHasher()
	pows := service.NewPowService(st, pow.Pow64b, cfg.PowTTL, cfg.DefaultDifficulty)
	keys := service.NewKeyService(st, ent, cfg.Domain)
	fed := federation.NewClient(cfg.FederationTO, cfg.FederationScheme)
	svc := transport.Services{
		Vaults:   service.NewVaultService(st, hasher, cfg.Domain),
		Sessions: service.NewSessionService(st, hasher, cfg.SessionTTL),
		Pow:      pows,
		Keys:     keys,
		Exchange: service.NewExchangeService(st, pows, keys, fed, cfg.Domain, cfg.FederationTO, cfg.DefaultDifficulty),
		Messages: service.NewMessageService(st, cfg.Domain),
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           transport.NewRouter(svc, cfg.PublicAPIURL),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("keypears listening",
		"addr", cfg.Addr,
		"domain", cfg.Domain,
		"entropy_generation", ent.Len(),
	)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// openDB picks the driver from config. TranslateError is required so unique
// index violations surface as gorm.ErrDuplicatedKey on both backends.
func openDB(cfg config.Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{TranslateError: true}
	if cfg.DatabaseDriver == "sqlite" {
		return gorm.Open(sqlite.Open(cfg.DatabaseURL), gcfg)
	}
	return gorm.Open(postgres.Open(cfg.DatabaseURL), gcfg)
}
