package database

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // file-local SQLite driver
)

var DB *sql.DB

// Store drivers understood by the application.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

const postgresUsersSchema = `
CREATE TABLE IF NOT EXISTS users (
    id            BIGSERIAL PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    full_name     TEXT,
    role          TEXT NOT NULL DEFAULT 'member',
    is_active     BOOLEAN NOT NULL DEFAULT TRUE,
    created_at    TIMESTAMPTZ NOT NULL,
    updated_at    TIMESTAMPTZ NOT NULL
);`

const sqliteUsersSchema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    full_name     TEXT,
    role          TEXT NOT NULL DEFAULT 'member',
    is_active     BOOLEAN NOT NULL DEFAULT TRUE,
    created_at    TIMESTAMP NOT NULL,
    updated_at    TIMESTAMP NOT NULL
);`

// InitPostgres opens the PostgreSQL connection and ensures the users table.
func InitPostgres(host, port, user, password, dbname, sslmode string) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)

	var err error
	DB, err = sql.Open("postgres", connStr)
	if err != nil {
		log.Fatalf("Error opening database: %q", err)
	}
	if err = DB.Ping(); err != nil {
		log.Fatalf("Error connecting to database: %q", err)
	}
	if _, err = DB.Exec(postgresUsersSchema); err != nil {
		log.Fatalf("Error applying users schema: %q", err)
	}
}

// InitSQLite opens (or creates) the local database file and ensures the
// users table.
func InitSQLite(path string) {
	var err error
	DB, err = sql.Open("sqlite", path)
	if err != nil {
		log.Fatalf("Error opening sqlite database: %q", err)
	}
	// The pure-Go driver serializes writes itself but a single connection
	// avoids SQLITE_BUSY on concurrent sessions.
	DB.SetMaxOpenConns(1)
	if err = DB.Ping(); err != nil {
		log.Fatalf("Error connecting to sqlite database: %q", err)
	}
	if _, err = DB.Exec(sqliteUsersSchema); err != nil {
		log.Fatalf("Error applying users schema: %q", err)
	}
}

// GetDB returns the database connection pool (nil for the memory driver).
func GetDB() *sql.DB {
	return DB
}
