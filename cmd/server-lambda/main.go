package main

import (
	"context"
	"log"

	"github.com/IsaacKoome/glowscanweb/ai"
	"github.com/IsaacKoome/glowscanweb/app"
	"github.com/IsaacKoome/glowscanweb/app/config"
	"github.com/IsaacKoome/glowscanweb/app/models"
	"github.com/IsaacKoome/glowscanweb/paystack"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
)

var ginLambda *ginadapter.GinLambda

// init runs once per Lambda container (cold start)
func init() {
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
		if err := app.Migrate(context.Background(), db); err != nil {
			log.Fatalf("failed to migrate: %v", err)
		}
		store = app.NewPostgresStore(db)
	}

	backends := map[models.Backend]ai.Backend{}
	if cfg.GeminiAPIKey != "" {
		backends[models.BackendGemini] = ai.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL, cfg.RequestTimeout)
	}
	if cfg.OpenAIAPIKey != "" {
		backends[models.BackendGPT4o] = ai.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, cfg.RequestTimeout)
	}

	var payments *paystack.Client
	if cfg.PaystackSecretKey != "" {
		payments = paystack.NewClient(cfg.PaystackSecretKey, cfg.PaystackBaseURL, 0)
	}

	server := app.NewServer(cfg, store, backends, payments)
	ginLambda = ginadapter.New(server.Routes())
}

// Handler is the Lambda entrypoint for API Gateway proxy integration.
func Handler(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return ginLambda.ProxyWithContext(ctx, req)
}

func main() {
	lambda.Start(Handler)
}
