// migrate applies, rolls back or reports the embedded schema migrations.
//
// Usage: go run ./cmd/migrate [up | down <steps> | version]
package main

import (
	"log"
	"os"
	"strconv"

	"github.com/Drasasse/gestion-commerce-sub001/internal/config"
	"github.com/Drasasse/gestion-commerce-sub001/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	url := config.Load().Database.URL
	if url == "" {
		log.Fatal("[CONFIG] DATABASE_URL environment variable not set")
	}

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "up":
		if err := db.Migrate(url); err != nil {
			log.Fatalf("[UP] %v", err)
		}
		log.Println("[DONE] All migrations applied.")

	case "down":
		steps := 1
		if len(os.Args) > 2 {
			n, err := strconv.Atoi(os.Args[2])
			if err != nil {
				log.Fatalf("[DOWN] invalid step count %q", os.Args[2])
			}
			steps = n
		}
		if err := db.Rollback(url, steps); err != nil {
			log.Fatalf("[DOWN] %v", err)
		}
		log.Printf("[DONE] Rolled back %d migration(s).", steps)

	case "version":
		v, dirty, err := db.Version(url)
		if err != nil {
			log.Fatalf("[VERSION] %v", err)
		}
		log.Printf("[VERSION] %d (dirty=%t)", v, dirty)

	default:
		log.Fatalf("Unknown command: %s\nAvailable: up, down [steps], version", cmd)
	}
}
