package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"rewmo/config"
	"rewmo/database"
	"rewmo/metrics"
	_ "rewmo/providers/networks"
	"rewmo/routes"
	"rewmo/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	cfg := config.Load()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	m := metrics.Default()
	ledger := services.NewLedger(db, m)
	clicks := services.NewClickLedger(db, m)
	importer := services.NewImporter(db, services.NewResolver(db), ledger, m)

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	app.Use(recover.New())
	app.Use(logger.New())

	routes.Setup(app, routes.Deps{
		Config:   cfg,
		Clicks:   clicks,
		Ledger:   ledger,
		Importer: importer,
		Payouts:  services.NewPayoutProcessor(db, m),
		Feeds:    services.NewFeedClient(cfg.FeedURLs, cfg.FeedAPIKeys, cfg.FeedTimeout),
	})

	addr := cfg.Addr()
	log.Println("Server running at", addr)

	go func() {
		if err := app.Listen(addr); err != nil {
			log.Panicf("Failed to start server: %v", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("Gracefully shutting down...")
	if err := app.Shutdown(); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	clicks.Wait()
	log.Println("Server exited cleanly")
}
