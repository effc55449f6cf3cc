// internal/db/db.go
package db

import (
	"database/sql"
	"log"

	_ "github.com/lib/pq"

	"github.com/relaytide/campaign-platform/internal/config"
)

var DB *sql.DB

// Init opens the Postgres connection pool from cfg.StoreDSN and verifies
// connectivity before returning.
func Init(cfg *config.Config) {
	log.Println("connecting to store:", redactDSN(cfg.StoreDSN))

	var err error
	DB, err = sql.Open("postgres", cfg.StoreDSN)
	if err != nil {
		log.Fatalf("failed to connect to DB: %v", err)
	}

	if err = DB.Ping(); err != nil {
		log.Fatalf("failed to ping DB: %v", err)
	}

	log.Println("✅ Connected to database")
}

// redactDSN hides the password component of a postgres:// DSN before it
// is logged.
func redactDSN(dsn string) string {
	at := -1
	for i := 0; i < len(dsn); i++ {
		if dsn[i] == '@' {
			at = i
			break
		}
	}
	colon := -1
	for i := 0; i < len(dsn); i++ {
		if dsn[i] == ':' {
			colon = i
		}
		if at != -1 && i >= at {
			break
		}
	}
	if at == -1 || colon == -1 || colon > at {
		return dsn
	}
	return dsn[:colon] + ":***" + dsn[at:]
}
