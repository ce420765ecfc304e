package history

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/pressly/goose/v3"
)

// MigrationsDir is the directory of Migrations holding goose SQL files
const MigrationsDir = "migrations"

// Migrations holds the schema for PostgresStore
//
//go:embed migrations/*.sql
var Migrations embed.FS

// PostgresStore persists records in PostgreSQL with the full assessment as JSONB.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres opens and pings a PostgreSQL connection pool
func OpenPostgres(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies every pending migration
func (s *PostgresStore) Migrate(ctx context.Context) error {
	migrations, err := fs.Sub(Migrations, MigrationsDir)
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, s.db, migrations)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, r *Record) error {
	if err := validate(r); err != nil {
		return err
	}

	assessmentJSON, err := json.Marshal(r.Assessment)
	if err != nil {
		return fmt.Errorf("failed to marshal assessment: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO token_assessments (id, network, address, score, risk_level, assessment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		r.ID,
		r.Network,
		r.Address,
		r.Score,
		string(r.RiskLevel),
		assessmentJSON,
		r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save assessment: %w", err)
	}
	return nil
}

// List returns matching records, most recent first
func (s *PostgresStore) List(ctx context.Context, q Query) ([]*Record, error) {
	q = q.normalize()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, network, address, score, risk_level, assessment, created_at
		FROM token_assessments
		WHERE address = $1 AND ($2 = '' OR network = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`, q.Address, q.Network, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := []*Record{}
	for rows.Next() {
		var r Record
		var assessmentJSON []byte
		if err := rows.Scan(&r.ID, &r.Network, &r.Address, &r.Score, &r.RiskLevel, &assessmentJSON, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assessment: %w", err)
		}
		if err := json.Unmarshal(assessmentJSON, &r.Assessment); err != nil {
			return nil, fmt.Errorf("failed to decode assessment %s: %w", r.ID, err)
		}
		result = append(result, &r)
	}
	return result, rows.Err()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
