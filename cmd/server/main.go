package main

import (
	"context"
	"log"

	"github.com/IsaacKoome/glowscanweb/ai"
	"github.com/IsaacKoome/glowscanweb/app"
	"github.com/IsaacKoome/glowscanweb/app/config"
	"github.com/IsaacKoome/glowscanweb/app/models"
	"github.com/IsaacKoome/glowscanweb/paystack"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var store app.UserStore
	if cfg.DB.Configured() {
		db, err := app.OpenDB(cfg.DB)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer db.Close()
		if err := app.Migrate(context.Background(), db); err != nil {
			log.Fatalf("failed to migrate: %v", err)
		}
		log.Println("Connected to Postgres")
		store = app.NewPostgresStore(db)
	} else {
		log.Println("Postgres not configured; record-dependent endpoints will fail closed")
	}

	backends := map[models.Backend]ai.Backend{}
	if cfg.GeminiAPIKey != "" {
		backends[models.BackendGemini] = ai.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL, cfg.RequestTimeout)
	} else {
		log.Println("GEMINI_API_KEY not set; gemini backend disabled")
	}
	if cfg.OpenAIAPIKey != "" {
		backends[models.BackendGPT4o] = ai.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, cfg.RequestTimeout)
	} else {
		log.Println("OPENAI_API_KEY not set; gpt4o backend disabled")
	}

	var payments *paystack.Client
	if cfg.PaystackSecretKey != "" {
		payments = paystack.NewClient(cfg.PaystackSecretKey, cfg.PaystackBaseURL, 0)
	} else {
		log.Println("PAYSTACK_SECRET_KEY not set; payment endpoints disabled")
	}

	server := app.NewServer(cfg, store, backends, payments)
	router := server.Routes()
	router.Run("0.0.0.0:" + cfg.Port)
}
