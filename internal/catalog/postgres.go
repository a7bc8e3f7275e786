package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/tobiaswidmer/poisearch/pkg/config"
	"github.com/tobiaswidmer/poisearch/pkg/errors"
	"github.com/tobiaswidmer/poisearch/pkg/postgres"
)

// Source pulls the POI catalog from the scanner database. Gyms and stops
// live in separate tables and are fetched concurrently.
type Source struct {
	client *postgres.Client
	cfg    config.PostgresConfig
	logger *slog.Logger
}

// NewSource wraps a postgres client as a catalog source.
func NewSource(client *postgres.Client, cfg config.PostgresConfig) *Source {
	return &Source{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "catalog-source"),
	}
}

// Pull fetches all gyms and stops and returns them as catalog rows. Rows
// with empty names are dropped; they cannot be tokenized and would never
// match a query.
func (s *Source) Pull(ctx context.Context) ([]Row, error) {
	var gyms, stops []Row
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		gyms, err = s.pullTable(gctx, s.cfg.GymTable, CategoryGym)
		return err
	})
	g.Go(func() error {
		var err error
		stops, err = s.pullTable(gctx, s.cfg.StopTable, CategoryPokestop)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Newf(errors.ErrCatalogUnavailable, http.StatusServiceUnavailable, "pulling catalog: %v", err)
	}

	rows := make([]Row, 0, len(gyms)+len(stops))
	rows = append(rows, gyms...)
	rows = append(rows, stops...)
	s.logger.Info("catalog pulled", "gyms", len(gyms), "stops", len(stops))
	return rows, nil
}

func (s *Source) pullTable(ctx context.Context, table string, category Category) ([]Row, error) {
	// Table names come from config, not user input; they cannot be bound
	// as query parameters.
	query := fmt.Sprintf(`SELECT name, lat, lon FROM %s`, table)
	dbRows, err := s.client.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer dbRows.Close()

	var rows []Row
	for dbRows.Next() {
		var name sql.NullString
		var lat, lon sql.NullFloat64
		if err := dbRows.Scan(&name, &lat, &lon); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", table, err)
		}
		if !name.Valid || name.String == "" {
			continue
		}
		row := Row{Name: name.String, Category: category}
		if lat.Valid {
			row.Latitude = Coord(lat.Float64)
		}
		if lon.Valid {
			row.Longitude = Coord(lon.Float64)
		}
		rows = append(rows, row)
	}
	if err := dbRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", table, err)
	}
	return rows, nil
}
