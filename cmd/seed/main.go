package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiwari-pos/ordercore/internal/auth"
	"github.com/kiwari-pos/ordercore/internal/cache"
	"github.com/kiwari-pos/ordercore/internal/config"
	"github.com/kiwari-pos/ordercore/internal/enum"
	"github.com/kiwari-pos/ordercore/internal/events"
	"github.com/kiwari-pos/ordercore/internal/service"
)

type seedProduct struct {
	name     string
	price    string
	stock    int32
	minStock int32
}

var defaultProducts = []seedProduct{
	{"Nasi Bakar Ayam", "25000", 40, 5},
	{"Nasi Bakar Cumi", "30000", 30, 5},
	{"Es Teh Manis", "8000", 100, 20},
	{"Kopi Susu", "18000", 60, 10},
	{"Kerupuk", "5000", 8, 10},
}

func main() {
	// CLI flags
	role := flag.String("role", "", "Role embedded in the printed dev token")
	userID := flag.String("user", "", "User ID embedded in the printed dev token")
	flag.Parse()

	// Fall back to environment variables
	if *role == "" {
		*role = os.Getenv("SEED_ROLE")
	}
	if *role == "" {
		*role = enum.UserRoleOwner
	}

	actor := uuid.New()
	if *userID != "" {
		id, err := uuid.Parse(*userID)
		if err != nil {
			log.Fatalf("Invalid user ID: %v", err)
		}
		actor = id
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	productCache, err := cache.NewProductCache(cfg.ProductCacheSize)
	if err != nil {
		log.Fatalf("Failed to create cache: %v", err)
	}
	catalog := service.NewCatalog(pool, service.DefaultNewStore, productCache, events.Nop{})

	if err := seedProducts(ctx, catalog, actor); err != nil {
		log.Fatalf("Failed to seed products: %v", err)
	}

	token, err := auth.GenerateToken(cfg.JWTSecret, actor, *role, 24*time.Hour)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	log.Println("Seed completed successfully")
	log.Printf("User ID: %s (role %s)", actor, *role)
	fmt.Println(token)
}

// seedProducts creates each default product unless one with the same name exists.
func seedProducts(ctx context.Context, catalog *service.Catalog, actor uuid.UUID) error {
	existing, err := catalog.ListProducts(ctx, false, false)
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}
	names := make(map[string]bool, len(existing))
	for _, p := range existing {
		names[p.Name] = true
	}

	for _, sp := range defaultProducts {
		if names[sp.name] {
			log.Printf("Product '%s' already exists, skipping", sp.name)
			continue
		}
		p, err := catalog.CreateProduct(ctx, service.CreateProductRequest{
			Name:     sp.name,
			Price:    sp.price,
			Stock:    sp.stock,
			MinStock: sp.minStock,
			IsActive: true,
			Actor:    actor,
		})
		if err != nil {
			return fmt.Errorf("create %s: %w", sp.name, err)
		}
		log.Printf("Created product '%s' (ID: %s, stock %d)", p.Name, p.ID, p.Stock)
	}
	return nil
}
