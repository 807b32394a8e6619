package repos

import (
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"storefront/internal/domain"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if strings.Contains(dsn, ":memory:") {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Users & Sessions
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL DEFAULT '',
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('USER','ADMIN')),
  age INTEGER NULL CHECK (age IS NULL OR age BETWEEN 1 AND 150),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,               -- same value as the 'sid' cookie
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

-- Comments
CREATE TABLE IF NOT EXISTS comments(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  body TEXT NOT NULL,
  rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
  status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active','inactive')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_comments_status_created ON comments(status, created_at);
`
	_, err := db.Exec(schema)
	return err
}

type SeedUser struct {
	Email, FirstName, LastName, Role, Password string
}

// DemoUsers are inserted when SEED_DEMO is on.
func DemoUsers() []SeedUser {
	return []SeedUser{
		{"alice@storefront.test", "Alice", "Moreno", domain.RoleUser, "Passw0rd!"},
		{"bob@storefront.test", "Bob", "Lane", domain.RoleUser, "Passw0rd!"},
		{"admin@storefront.test", "Admin", "", domain.RoleAdmin, "Passw0rd!"},
	}
}

// SeedUsers ensures the given accounts exist (idempotent).
func SeedUsers(db *sqlx.DB, users []SeedUser) error {
	if len(users) == 0 {
		return nil
	}
	log.Printf("[seed] ensuring %d users", len(users))

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		h, err := bcrypt.GenerateFromPassword([]byte(x.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`
			INSERT INTO users(id,email,first_name,last_name,password_hash,role)
			VALUES(?,?,?,?,?,?)
			ON CONFLICT(email) DO NOTHING
		`, uuid.NewString(), strings.ToLower(x.Email), x.FirstName, x.LastName, string(h), x.Role); err != nil {
			return err
		}
	}

	return tx.Commit()
}
