package data

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KotFed0t/index_rebalancer/config"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/jmoiron/sqlx"
)

const (
	defaultConnAttempts = 10
	connTimeout         = time.Second
)

// NewPostgresClient connects to the market capitalisation store and applies pending migrations.
// Panics when the database stays unreachable after all attempts.
func NewPostgresClient(cfg *config.Config) *sqlx.DB {
	db, err := connect(postgresDSN(cfg.Postgres), defaultConnAttempts)
	if err != nil {
		slog.Error("Postgres connAttempts = 0", slog.String("host", cfg.Postgres.Host), slog.String("err", err.Error()))
		panic(err)
	}

	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxIdleTime(time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second)
	if err = db.Ping(); err != nil {
		slog.Error("Postgres dbPing error", slog.String("err", err.Error()))
		panic(err)
	}
	slog.Info("Postgres connected", slog.String("db", cfg.Postgres.DbName))

	migratePostgres(db, cfg.Postgres.MigrationDir)
	slog.Info("market capitalisation schema is up to date", slog.String("migrationDir", cfg.Postgres.MigrationDir))

	return db
}

func postgresDSN(cfg config.Postgres) string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=disable password=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.DbName,
		cfg.Password,
	)
}

func connect(dsn string, attempts int) (db *sqlx.DB, err error) {
	for ; attempts > 0; attempts-- {
		db, err = sqlx.Connect("pgx", dsn)
		if err == nil {
			return db, nil
		}

		slog.Info("Postgres is trying to connect", slog.Int("attempts left", attempts))
		time.Sleep(connTimeout)
	}
	return nil, err
}

func migratePostgres(db *sqlx.DB, migrationDir string) {
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		slog.Error("postgres migration failed on postgres.WithInstance", slog.String("err", err.Error()))
		panic(err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationDir, "postgres", driver)
	if err != nil {
		slog.Error("postgres migration failed on migrate.NewWithDatabaseInstance", slog.String("err", err.Error()))
		panic(err)
	}

	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		slog.Error("postgres migration failed on m.Up()", slog.String("err", err.Error()))
		panic(err)
	}
}
