package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"

	"blog_api/internal/pkg/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
)

func main() {
	var (
		dir   = flag.String("dir", "migrations", "migrations directory")
		down  = flag.Bool("down", false, "roll back one version")
		force = flag.Int("force", -1, "force the schema version and clear the dirty flag")
	)
	flag.Parse()

	_ = godotenv.Load()
	config.LoadConfig()
	cfg := config.GlobalConfig.Database
	if cfg.Driver != "postgres" {
		log.Fatalf("migrations only target postgres; use database.auto_migrate for %s", cfg.Driver)
	}

	dsn := (&url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host + ":" + cfg.Port,
		Path:     "/" + cfg.DBName,
		RawQuery: "sslmode=" + cfg.SSLMode,
	}).String()

	m, err := migrate.New("file://"+*dir, dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer m.Close()

	switch {
	case *force >= 0:
		err = m.Force(*force)
	case *down:
		err = m.Steps(-1)
	default:
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		var dirty migrate.ErrDirty
		if errors.As(err, &dirty) {
			log.Fatalf("database is dirty at version %d, fix it and rerun with -force=%d", dirty.Version, dirty.Version-1)
		}
		log.Fatal(err)
	}

	version, isDirty, _ := m.Version()
	fmt.Printf("Migration successful, version=%d dirty=%v\n", version, isDirty)
}
