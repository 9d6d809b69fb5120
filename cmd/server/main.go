package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/merlinthebtcwizard/allowance-app/internal/allowance"
	"github.com/merlinthebtcwizard/allowance-app/internal/config"
	"github.com/merlinthebtcwizard/allowance-app/internal/ledger"
	"github.com/merlinthebtcwizard/allowance-app/internal/notify"
	"github.com/merlinthebtcwizard/allowance-app/internal/payments"
	"github.com/merlinthebtcwizard/allowance-app/internal/server"
	"github.com/merlinthebtcwizard/allowance-app/internal/storage/postgres"
)

func main() {
	loadLocalEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	defer store.Close()

	stripe := payments.NewStripeProvider(cfg.StripeSecretKey)
	settlement := payments.NewLNDSettlement(cfg.LNDHost, cfg.LNDPort, cfg.LNDCertPath, cfg.LNDMacaroonPath)

	var notifier notify.Notifier
	if len(cfg.KafkaBrokers) > 0 {
		kafkaNotifier := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
	} else {
		notifier = notify.NewLogNotifier()
	}

	lgr := ledger.New(store)
	sweep := allowance.NewSweep(store, lgr, settlement, notifier, cfg.SweepInterval)
	go sweep.Start(ctx)

	srv := server.New(cfg, store, lgr, stripe, stripe, settlement, sweep.Notify)

	go func() {
		log.Printf("allowance backend listening on %s", cfg.HTTPAddress())
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Printf("graceful shutdown error: %v", err)
	}
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found; relying on existing environment")
	}
}
