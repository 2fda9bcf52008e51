package db

import (
	"database/sql"
	"log"
	"os"

	_ "github.com/lib/pq"
)

// InitDB opens the Postgres connection and applies db/schema.sql.
func InitDB(dsn string) *sql.DB {
	database, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	if err = database.Ping(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	applySchema(database)
	log.Println("Database initialized")
	return database
}

func applySchema(database *sql.DB) {
	schema, err := os.ReadFile("db/schema.sql")
	if err != nil {
		log.Fatalf("Failed to read schema file: %v", err)
	}

	if _, err = database.Exec(string(schema)); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}
}
