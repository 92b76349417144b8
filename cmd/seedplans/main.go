// Command seedplans writes the plan catalog into Firestore.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"rentshare-backend-go/configs"
	"rentshare-backend-go/internal/config"
	"rentshare-backend-go/internal/db"
)

func main() {
	path := flag.String("catalog", "", "plan catalog YAML (defaults to PATH_CONFIG or configs/plans.yaml)")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer logger.Sync()

	cat, err := configs.LoadPlanCatalog(*path)
	if err != nil {
		logger.Fatal("Invalid plan catalog", zap.Error(err))
	}
	appConfig, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load application configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := db.InitFirebase(ctx, appConfig); err != nil {
		logger.Fatal("Failed to initialize Firebase", zap.Error(err))
	}
	defer db.GetFirestoreClient().Close()

	plans := db.NewFirestorePlanRepository(db.GetFirestoreClient())
	for _, p := range cat.Models() {
		if err := plans.Upsert(ctx, p); err != nil {
			logger.Fatal("Failed to write plan", zap.String("planId", p.ID), zap.Error(err))
		}
		logger.Info("Plan written", zap.String("planId", p.ID), zap.String("type", p.PlanType), zap.Float64("price", p.Price))
	}
}
