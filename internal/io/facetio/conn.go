package facetio

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iiifsearch/canvasindexer/pkg/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

func pgxConn(cfg config.Config) (*pgxpool.Pool, error) {
	url := fmt.Sprintf(
		"postgres://%s:%s@%s:5432/%s",
		cfg.PgUser, cfg.PgPass, cfg.PgHost, cfg.PgDB,
	)
	db, err := pgxpool.New(context.Background(), url)
	if err != nil {
		slog.Error("Cannot connect to database", "error", err)
		return nil, err
	}
	return db, nil
}
