package test

import (
	"database/sql"
	"fmt"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
)

const (
	containerUser     = "postgres"
	containerPassword = "localtest"
	containerDB       = "pushclient"
)

// StartPostgresDB starts a disposable postgres container and returns its
// connection URL. The container expires on its own if the test run dies
// before teardown.
func StartPostgresDB(pool *dockertest.Pool) (string, error) {
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "14-alpine",
		Env: []string{
			"POSTGRES_USER=" + containerUser,
			"POSTGRES_PASSWORD=" + containerPassword,
			"POSTGRES_DB=" + containerDB,
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return "", err
	}

	if err := resource.Expire(300); err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=disable",
		containerUser,
		containerPassword,
		resource.GetHostPort("5432/tcp"),
		containerDB,
	), nil
}

// WaitForConnection blocks until the database accepts connections and
// returns an open handle on it.
func WaitForConnection(pool *dockertest.Pool, databaseURL string) (*sql.DB, error) {
	var db *sql.DB

	err := pool.Retry(func() error {
		var err error
		db, err = sql.Open("pgx", databaseURL)
		if err != nil {
			return err
		}
		return db.Ping()
	})
	if err != nil {
		return nil, err
	}

	return db, nil
}
