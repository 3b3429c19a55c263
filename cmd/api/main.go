package main

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/tabletap/pos-api/internal/database"
	"github.com/tabletap/pos-api/internal/events"
	"github.com/tabletap/pos-api/internal/handlers"
	"github.com/tabletap/pos-api/internal/orders"
	"github.com/tabletap/pos-api/internal/payments"
	"github.com/tabletap/pos-api/internal/routes"
)

func main() {
	// 0. --- Load Environment Variables (.env) ---
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Could not find or load .env file. Relying on system environment variables.")
	}

	// 1. --- Database Connection ---
	db, err := database.OpenDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// 2. --- Event Publisher ---
	// The broker may be down; the publisher dials lazily and order
	// correctness never depends on it.
	var publisher events.Publisher = events.Nop{}
	var rabbit *events.RabbitPublisher
	if amqpURL := os.Getenv("AMQP_URL"); amqpURL != "" {
		rabbit = events.NewRabbitPublisher(amqpURL)
		defer rabbit.Close()
		publisher = rabbit
	} else {
		log.Println("WARNING: AMQP_URL is not set. Order events will not be broadcast.")
	}

	// 3. --- Payment Provider ---
	stripeKey := os.Getenv("STRIPE_SECRET_KEY")
	if stripeKey == "" {
		log.Fatal("CRITICAL ERROR: STRIPE_SECRET_KEY environment variable is not set.")
	}
	provider := payments.NewStripeProvider(stripeKey)

	// --- Application Setup ---
	store := orders.NewStore(db, publisher)
	app := &handlers.Handlers{
		DB:         db,
		Store:      store,
		Settlement: orders.NewCoordinator(store, provider, os.Getenv("PAYMENT_CURRENCY")),
	}

	// 4. --- Background Worker ---
	// Keep the shared broker connection warm so the first publish after a
	// broker restart does not pay the dial cost.
	if rabbit != nil {
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()

			for range ticker.C {
				if err := rabbit.Ping(); err != nil {
					log.Printf("WARNING: event broker unreachable: %v", err)
				}
			}
		}()
	}

	// --- Router Setup ---
	router := routes.SetupRouter(app)

	// --- Start Server ---
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Starting TableTap POS API server on port %s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
