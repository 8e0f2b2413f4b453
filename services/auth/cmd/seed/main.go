package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	pkgconfig "github.com/complyhub/platform/pkg/config"
	"github.com/complyhub/platform/pkg/db"
	"github.com/complyhub/platform/pkg/logging"
	"github.com/complyhub/platform/services/auth/internal/repo"
	"github.com/complyhub/platform/services/auth/internal/seed"
)

func main() {
	path := flag.String("f", "seed.yaml", "seed file")
	flag.Parse()

	pkgconfig.LoadDotEnv(os.Getenv("ENV_FILE"))
	logger := logging.New(pkgconfig.EnvDefault("LOG_LEVEL", "info"))

	in, err := os.Open(*path)
	if err != nil {
		log.Fatalf("open seed file: %v", err)
	}
	defer in.Close()
	file, err := seed.Parse(in)
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	gdb, err := db.Open(ctx,
		pkgconfig.EnvDefault("DB_DRIVER", db.DriverPgx),
		pkgconfig.MustNonEmpty(os.Getenv("DATABASE_URL"), "DATABASE_URL"))
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer db.Close(gdb)

	r := repo.New(gdb)
	if err := r.Migrate(ctx); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	sum, err := seed.Apply(ctx, r, file, pkgconfig.EnvIntDefault("BCRYPT_COST", 10))
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	logger.Info("seed_applied", "file", *path, "tenants", sum.Tenants, "roles", sum.Roles,
		"permissions", sum.Permissions, "users", sum.Users)
}
