// seed creates a first boutique, an administrator and its manager on an empty database.
// Running it twice is harmless: existing accounts are left as they are.
//
// Usage: SEED_ADMIN_PASSWORD=... SEED_MANAGER_PASSWORD=... go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/Drasasse/gestion-commerce-sub001/internal/config"
	"github.com/Drasasse/gestion-commerce-sub001/internal/core"
	"github.com/Drasasse/gestion-commerce-sub001/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx := context.Background()

	if err := db.Migrate(cfg.Database.URL); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	operator := core.Principal{Role: core.RoleAdmin}
	boutiques := core.NewBoutiqueService(pool)
	users := core.NewUserService(pool)

	existing, err := boutiques.ListBoutiques(ctx, operator)
	if err != nil {
		log.Fatalf("Failed to list boutiques: %v", err)
	}
	var boutiqueID int
	if len(existing) > 0 {
		boutiqueID = existing[0].ID
		log.Printf("Boutique %q already present, reusing it.", existing[0].Name)
	} else {
		b, err := boutiques.CreateBoutique(ctx, operator, core.BoutiqueInput{
			Name:    getEnv("SEED_BOUTIQUE_NAME", "Boutique principale"),
			Address: os.Getenv("SEED_BOUTIQUE_ADDRESS"),
		})
		if err != nil {
			log.Fatalf("Failed to create boutique: %v", err)
		}
		boutiqueID = b.ID
		log.Printf("Created boutique %q (#%d).", b.Name, b.ID)
	}

	accounts := []core.UserInput{
		{Username: "admin", FullName: "Administrateur", Role: core.RoleAdmin,
			Password: os.Getenv("SEED_ADMIN_PASSWORD")},
		{Username: "gestionnaire", FullName: "Gestionnaire", Role: core.RoleGestionnaire,
			BoutiqueID: &boutiqueID, Password: os.Getenv("SEED_MANAGER_PASSWORD")},
	}
	for _, in := range accounts {
		if in.Password == "" {
			log.Printf("Skipping %s: no password provided.", in.Username)
			continue
		}
		in.IsActive = true
		u, err := users.CreateUser(ctx, operator, in)
		switch {
		case errors.Is(err, core.ErrDuplicate):
			log.Printf("User %s already exists.", in.Username)
		case err != nil:
			log.Fatalf("Failed to create %s: %v", in.Username, err)
		default:
			log.Printf("Created %s user %s (#%d).", u.Role, u.Username, u.ID)
		}
	}

	log.Println("Seed data ready.")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
