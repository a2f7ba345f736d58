package main // bootstrap creates the initial admin account

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/ascendedtech/techlab-server/internal/config"
	"github.com/ascendedtech/techlab-server/internal/database"
	"github.com/ascendedtech/techlab-server/internal/repository"
	"github.com/ascendedtech/techlab-server/internal/store"
	"github.com/ascendedtech/techlab-server/internal/utils"
)

// Run by an operator once after deployment.  Refuses to create a second
// admin unless -force is given, so the server itself never has to plant
// credentials implicitly.
func main() {
	var (
		name     = flag.String("name", "admin", "admin username")
		emailArg = flag.String("email", "admin@ascended.tech", "admin email address")
		password = flag.String("password", "", "admin password; generated and printed when empty")
		force    = flag.Bool("force", false, "create the account even if an admin already exists")
	)
	flag.Parse()

	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	st := store.New(db)
	users := repository.NewUserRepo(st)

	if !*force {
		existing, err := st.Select(ctx, "users", store.Filters{"role": "admin"}, "", 1)
		if err != nil {
			log.Fatalf("checking for existing admin: %v", err)
		}
		if len(existing) > 0 {
			log.Fatal("an admin account already exists; re-run with -force to add another")
		}
	}

	plain := *password
	generated := false
	if plain == "" {
		tok, err := utils.NewSessionToken()
		if err != nil {
			log.Fatalf("generating password: %v", err)
		}
		plain = tok[:16]
		generated = true
	}

	hash, err := utils.HashPassword(plain)
	if err != nil {
		log.Fatalf("hashing password: %v", err)
	}

	id, err := users.Create(ctx, repository.User{
		Name:          *name,
		Email:         *emailArg,
		PasswordHash:  hash,
		Role:          "admin",
		IsActive:      true,
		EmailVerified: true,
	})
	if err != nil {
		log.Fatalf("creating admin: %v", err)
	}

	fmt.Printf("admin account created (id=%d)\n", id)
	fmt.Printf("  username: %s\n", *name)
	fmt.Printf("  email:    %s\n", *emailArg)
	if generated {
		// Printed exactly once; only the bcrypt digest is stored.
		fmt.Printf("  password: %s\n", plain)
	}
}
