package main

import (
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/libertypay/cardrecon/internal/api"
	"github.com/libertypay/cardrecon/internal/config"
	"github.com/libertypay/cardrecon/internal/domain"
	"github.com/libertypay/cardrecon/internal/match"
	"github.com/libertypay/cardrecon/internal/metrics"
	"github.com/libertypay/cardrecon/internal/partition"
	"github.com/libertypay/cardrecon/internal/reconciliation"
	"github.com/libertypay/cardrecon/internal/repository"
	"github.com/libertypay/cardrecon/internal/source"
	"github.com/libertypay/cardrecon/internal/summary"
)

func main() {
	// .env is optional; real deployments configure via environment.
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if os.Getenv("RECON_LOG_LEVEL") == "debug" {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	log.Infof("initializing database at %s", cfg.DB.Path)
	db, err := repository.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalf("init db: %v", err)
	}
	defer db.Close()

	metricsRepo := repository.NewMetricsRepo(db)
	auditRepo := repository.NewAuditRepo(db)

	csvDir := source.NewCSVDir(cfg.Source.Dir)
	engine := reconciliation.NewEngine(csvDir, engineParams(cfg), log)

	router := api.NewRouter(
		engine,
		metricsRepo,
		auditRepo,
		[]source.Sink{auditRepo, csvDir},
		summary.NewTemplate(),
		cfg,
		log,
	)

	log.Infof("card reconciliation engine")
	log.Infof("listening on http://localhost:%s", cfg.Server.Port)
	log.Infof("endpoints:")
	log.Infof("  POST   /api/v1/reconciliation/run")
	log.Infof("  GET    /api/v1/metrics/latest")
	log.Infof("  GET    /api/v1/metrics/{run_date}")
	log.Infof("  GET    /api/v1/config")
	log.Infof("  GET    /health")

	if err := http.ListenAndServe(":"+cfg.Server.Port, router); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func engineParams(cfg *config.Root) reconciliation.Params {
	strategies := make(map[domain.Channel]match.Strategy, len(cfg.Recon.Strategies))
	for ch, s := range cfg.Recon.Strategies {
		strategies[domain.Channel(ch)] = match.Strategy(s)
	}

	return reconciliation.Params{
		Merchants: partition.MerchantTable{
			InterswitchUnity: cfg.Merchants.InterswitchUnity,
			NIBSSUnity:       cfg.Merchants.NIBSSUnity,
			NIBSSParallex:    cfg.Merchants.NIBSSParallex,
		},
		Tables: reconciliation.TableNames{
			Card:               cfg.Tables.Card,
			NIBSSSettlement:    cfg.Tables.NIBSSSettlement,
			ISWSettlement:      cfg.Tables.ISWSettlement,
			ParallexSettlement: cfg.Tables.ParallexSettlement,
			BankUnity:          cfg.Tables.BankUnity,
			BankParallex:       cfg.Tables.BankParallex,
		},
		Strategies:      strategies,
		AmbiguityPolicy: match.AmbiguityPolicy(cfg.Recon.AmbiguityPolicy),
		RevenuePolicy:   metrics.RevenuePolicy(cfg.Recon.RevenuePolicy),
		SourceTimeout:   cfg.SourceTimeout(),
	}
}
