package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"auth-admin/internal/config"
	"auth-admin/internal/db"
	"auth-admin/internal/repository"
	"auth-admin/internal/security"
)

func main() {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Fatalf("db pool: %v", err)
	}
	defer pool.Close()

	if err := db.Ping(ctx, pool); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	if cfg.DBAutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			log.Fatalf("db migrate: %v", err)
		}
	}

	user, err := seedAdmin(ctx, repository.NewPgUserRepository(pool), security.NewBcryptHasher(cfg.BcryptCost), seedInput{
		Username: cfg.SeedAdminUsername,
		Email:    cfg.SeedAdminEmail,
		Password: cfg.SeedAdminPassword,
	}, time.Now().UTC())
	if err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	fmt.Printf("super admin listo: id=%d email=%s\n", user.ID, user.Email)
}
