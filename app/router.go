package app

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Routes builds the shared HTTP router for both local and Lambda execution.
func (s *Server) Routes() *gin.Engine {
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "X-User-ID", "X-Model-Choice"},
		MaxAge:       12 * time.Hour,
	}))

	router.GET("/", s.Health)
	router.GET("/usage", s.Usage)
	router.POST("/predict", s.Predict)
	router.POST("/chat-predict", s.ChatPredict)
	router.POST("/create-paystack-payment", s.CreatePaystackPayment)
	router.POST("/cancel-subscription", s.CancelSubscription)
	router.POST("/paystack-webhook", s.PaystackWebhook)

	return router
}
