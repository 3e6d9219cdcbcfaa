package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/S1M0N38/cr-db/internal/config"
	"github.com/S1M0N38/cr-db/internal/constants"
	"github.com/S1M0N38/cr-db/internal/logger"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// ErrIncompatibleSchema is returned for a database file whose tables were not
// created by these migrations. There is no upgrade path for such files.
var ErrIncompatibleSchema = errors.New("incompatible database schema")

var expectedColumns = map[string][]string{
	"players": {"last_visited", "tag"},
	"decks":   {"deck_id", "card_1", "card_2", "card_3", "card_4", "card_5", "card_6", "card_7", "card_8"},
	"battles": {
		"battle_id", "battle_time",
		"tag_1", "trophies_1", "crowns_1", "deck_1",
		"tag_2", "trophies_2", "crowns_2", "deck_2",
	},
}

func New(cfg *config.Config, logger zerolog.Logger) (*sql.DB, error) {
	logger.Info().Str("path", cfg.DBPath).Msg("connecting to database")

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(constants.DBMaxOpenConns)
	db.SetMaxIdleConns(constants.DBMaxIdleConns)
	db.SetConnMaxLifetime(0)

	if err := optimizeSQLite(db, logger); err != nil {
		_ = db.Close()
		logger.Error().Err(err).Msg("failed to optimize SQLite")
		return nil, fmt.Errorf("failed to optimize SQLite: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.DatabaseTimeout)
	defer cancel()

	if err := EnsureSchema(ctx, db, logger); err != nil {
		_ = db.Close()
		logger.Error().Err(err).Msg("failed to ensure schema")
		return nil, err
	}

	logger.Info().Msg("database connection established and optimized")
	return db, nil
}

// EnsureSchema creates the tables if absent. It is safe to call repeatedly.
func EnsureSchema(ctx context.Context, db *sql.DB, logger zerolog.Logger) error {
	if err := checkForeignTables(ctx, db); err != nil {
		return err
	}
	if err := runMigrations(ctx, db, logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return verifySchema(ctx, db)
}

func runMigrations(ctx context.Context, db *sql.DB, log zerolog.Logger) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(logger.Goose{Logger: log})

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to run goose migrations: %w", err)
	}

	log.Debug().Msg("migrations completed successfully")
	return nil
}

// checkForeignTables rejects files that already hold our tables but were
// never migrated by goose.
func checkForeignTables(ctx context.Context, db *sql.DB) error {
	tables, err := listTables(ctx, db)
	if err != nil {
		return err
	}
	if tables[goose.TableName()] {
		return nil
	}
	for name := range expectedColumns {
		if tables[name] {
			return fmt.Errorf("%w: table %s exists without migration history", ErrIncompatibleSchema, name)
		}
	}
	return nil
}

func verifySchema(ctx context.Context, db *sql.DB) error {
	for table, want := range expectedColumns {
		rows, err := db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
		if err != nil {
			return fmt.Errorf("failed to inspect table %s: %w", table, err)
		}

		have := make(map[string]bool)
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				rows.Close()
				return fmt.Errorf("failed to inspect table %s: %w", table, err)
			}
			have[name] = true
		}
		if err := rows.Close(); err != nil {
			return err
		}

		if len(have) != len(want) {
			return fmt.Errorf("%w: table %s has %d columns, want %d", ErrIncompatibleSchema, table, len(have), len(want))
		}
		for _, col := range want {
			if !have[col] {
				return fmt.Errorf("%w: table %s is missing column %s", ErrIncompatibleSchema, table, col)
			}
		}
	}
	return nil
}

func listTables(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table'")
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	tables := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to list tables: %w", err)
		}
		tables[name] = true
	}
	return tables, rows.Err()
}

func optimizeSQLite(sqlDB *sql.DB, logger zerolog.Logger) error {
	pragmas := []struct {
		name  string
		value string
	}{
		{"journal_mode", "WAL"},
		{"synchronous", "NORMAL"},
		{"cache_size", "-64000"},
		{"busy_timeout", "5000"},
		{"foreign_keys", "ON"},
		{"temp_store", "MEMORY"},
	}

	for _, pragma := range pragmas {
		query := fmt.Sprintf("PRAGMA %s = %s", pragma.name, pragma.value)
		if _, err := sqlDB.Exec(query); err != nil {
			logger.Warn().
				Err(err).
				Str("pragma", pragma.name).
				Str("value", pragma.value).
				Msg("failed to set pragma")
			return fmt.Errorf("failed to set PRAGMA %s: %w", pragma.name, err)
		}
		logger.Debug().
			Str("pragma", pragma.name).
			Str("value", pragma.value).
			Msg("SQLite pragma set")
	}

	return nil
}
