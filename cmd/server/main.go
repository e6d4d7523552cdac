package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiwari-pos/ordercore/internal/cache"
	"github.com/kiwari-pos/ordercore/internal/config"
	"github.com/kiwari-pos/ordercore/internal/database"
	"github.com/kiwari-pos/ordercore/internal/events"
	"github.com/kiwari-pos/ordercore/internal/router"
	"github.com/kiwari-pos/ordercore/internal/service"
	"github.com/kiwari-pos/ordercore/internal/ws"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	taxRate, err := cfg.TaxRateDecimal()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := database.Migrate(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			return err
		}
		log.Println("Migrations applied")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	productCache, err := cache.NewProductCache(cfg.ProductCacheSize)
	if err != nil {
		return err
	}

	hub := ws.NewHub()
	publishers := events.Fanout{hub}
	if cfg.AMQPURL != "" {
		amqpPub, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return err
		}
		defer amqpPub.Close()
		publishers = append(publishers, amqpPub)
		log.Printf("Publishing events to exchange %s", cfg.AMQPExchange)
	}

	newStore := service.DefaultNewStore
	catalog := service.NewCatalog(pool, newStore, productCache, publishers)
	orders := service.NewOrderService(pool, newStore, catalog, service.NewOrderNumberer(loc, nil), taxRate, publishers)
	kitchenSvc := service.NewKitchenService(pool, newStore, orders)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: router.New(cfg, router.Services{
			Orders:  orders,
			Catalog: catalog,
			Kitchen: kitchenSvc,
			Hub:     hub,
		}, loc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Println("Shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
