package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Rishabhh01/collab-kanban/api/handlers"
	"github.com/Rishabhh01/collab-kanban/internal/ws"
)

func main() {
	// Get configuration from environment
	port := getEnv("PORT", "5000")
	sweepInterval := getDurationEnv("SWEEP_INTERVAL", 2*time.Minute)
	staleAfter := getDurationEnv("STALE_AFTER", 5*time.Minute)

	// Initialize the relay service
	relay := ws.NewService(ws.Config{
		SweepInterval: sweepInterval,
		StaleAfter:    staleAfter,
	})
	relay.Start()
	defer relay.Close()

	// Initialize handlers
	wsHandler := handlers.NewWebSocketHandler(relay.Handler())
	presenceHandler := handlers.NewPresenceHandler(relay)
	eventsHandler := handlers.NewEventsHandler(relay)

	// Initialize Gin router
	r := gin.Default()

	// Enable CORS for the web client
	r.Use(corsMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":      "ok",
			"connections": relay.ConnectionCount(),
		})
	})

	// API routes
	api := r.Group("/api")
	{
		wsHandler.RegisterRoutes(api)
		presenceHandler.RegisterRoutes(api)
		eventsHandler.RegisterRoutes(api)
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down server...")
		relay.Close()
		os.Exit(0)
	}()

	// Start server
	log.Printf("Starting server on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv returns an environment variable parsed as a duration, or a
// default value.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid %s %q, using default %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

// corsMiddleware returns a CORS middleware for the web client.
func corsMiddleware() gin.HandlerFunc {
	clientURL := getEnv("CLIENT_URL", "*")
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", clientURL)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
