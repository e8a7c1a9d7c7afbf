package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/lib/pq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedProducts(db)
	seedPromotions(db)

	log.Println("Seeding completed successfully!")
}

func seedProducts(db *sql.DB) {
	products := []struct {
		Title      string
		Slug       string
		Price      int64
		WeightGram int
	}{
		{"MacBook Pro 14 M3", "macbook-pro-14-m3", 25000000, 1600},
		{"iPhone 15 Pro", "iphone-15-pro", 20000000, 190},
		{"Samsung Galaxy S24 Ultra", "samsung-galaxy-s24", 19000000, 230},
		{"Sony WH-1000XM5", "sony-wh-1000xm5", 5000000, 250},
		{"Dell XPS 13", "dell-xps-13", 18000000, 1200},
		{"Nike Air Force 1", "nike-air-force-1", 1500000, 900},
		{"Adidas Ultraboost", "adidas-ultraboost", 2000000, 850},
		{"Dyson V15 Detect", "dyson-v15", 12000000, 3100},
		{"Sony PlayStation 5", "sony-ps5", 9000000, 4500},
		{"Kaos Hitam Polos", "kaos-hitam-polos", 100000, 200},
	}

	fmt.Println("Seeding Products...")
	for _, p := range products {
		_, err := db.Exec(`
			INSERT INTO products (id, title, slug, price, weight_gram)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (slug) DO UPDATE SET
				title = EXCLUDED.title,
				price = EXCLUDED.price,
				weight_gram = EXCLUDED.weight_gram;
		`, uuid.NewString(), p.Title, p.Slug, p.Price, p.WeightGram)
		if err != nil {
			log.Printf("Failed to seed product %s: %v", p.Title, err)
		}
	}
}

func seedPromotions(db *sql.DB) {
	fmt.Println("Seeding Promotions...")

	type promoSeed struct {
		ID           string
		Name         string
		Kind         string
		PercentBps   int
		Amount       int64
		BuyQty       int
		GetQty       int
		ProductSlugs []string
	}

	promos := []promoSeed{
		{ID: "promo-electronics-20", Name: "Electronics Week 20% Off", Kind: "percentage", PercentBps: 2000,
			ProductSlugs: []string{"sony-wh-1000xm5", "sony-ps5", "dell-xps-13"}},
		{ID: "promo-sneaker-cut", Name: "Sneaker Price Cut", Kind: "fixed_amount", Amount: 200000,
			ProductSlugs: []string{"nike-air-force-1", "adidas-ultraboost"}},
		{ID: "promo-tshirt-2x1", Name: "T-Shirt Buy 2 Get 1", Kind: "buy_x_get_y", BuyQty: 2, GetQty: 1,
			ProductSlugs: []string{"kaos-hitam-polos"}},
	}

	for _, p := range promos {
		ids := make([]string, 0, len(p.ProductSlugs))
		for _, slug := range p.ProductSlugs {
			var id string
			if err := db.QueryRow("SELECT id FROM products WHERE slug = $1", slug).Scan(&id); err != nil {
				log.Printf("Skipping product %s for promotion %s: %v", slug, p.Name, err)
				continue
			}
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			log.Printf("Skipping promotion %s: no products resolved", p.Name)
			continue
		}
		_, err := db.Exec(`
			INSERT INTO promotions (id, name, kind, percent_bps, amount, buy_qty, get_qty, product_ids, starts_at, ends_at, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW() + INTERVAL '30 days', true)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				percent_bps = EXCLUDED.percent_bps,
				amount = EXCLUDED.amount,
				buy_qty = EXCLUDED.buy_qty,
				get_qty = EXCLUDED.get_qty,
				product_ids = EXCLUDED.product_ids,
				ends_at = EXCLUDED.ends_at,
				active = EXCLUDED.active;
		`, p.ID, p.Name, p.Kind, p.PercentBps, p.Amount, p.BuyQty, p.GetQty, pq.Array(ids))
		if err != nil {
			log.Printf("Failed to seed promotion %s: %v", p.Name, err)
		}
	}
}
