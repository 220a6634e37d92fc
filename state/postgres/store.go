package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/pushkit/webpush-client/state"
)

const stateTable = "device_state"

const schema = `
CREATE TABLE ` + stateTable + ` (
	"key"       TEXT PRIMARY KEY,
	"value"     TEXT NOT NULL,
	"createdAt" TIMESTAMPTZ NOT NULL,
	"updatedAt" TIMESTAMPTZ NOT NULL
)`

type pgStore struct {
	db *sqlx.DB
}

func NewInPostgres(db *sql.DB) state.Store {
	return &pgStore{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// CreateSchema creates the state table. Calling it against a database that
// already has the table is not an error.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.DuplicateTable {
		return nil
	}

	return err
}

func (s *pgStore) reset() {
	_, err := s.db.Exec(`DELETE FROM ` + stateTable)
	if err != nil {
		panic(err)
	}
}

func (s *pgStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	query := `SELECT "value" FROM ` + stateTable + ` WHERE "key" = $1`

	err := s.db.GetContext(ctx, &value, query, key)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	return value, true, nil
}

func (s *pgStore) Set(ctx context.Context, key, value string) error {
	now := time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO `+stateTable+` ("key", "value", "createdAt", "updatedAt")
		VALUES ($1, $2, $3, $3)
		ON CONFLICT ("key") DO UPDATE SET "value" = EXCLUDED."value", "updatedAt" = EXCLUDED."updatedAt"
	`, key, value, now)

	return err
}

func (s *pgStore) GetAll(ctx context.Context) (map[string]string, error) {
	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}

	query := `SELECT "key", "value" FROM ` + stateTable
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	all := make(map[string]string, len(rows))
	for _, row := range rows {
		all[row.Key] = row.Value
	}

	return all, nil
}
