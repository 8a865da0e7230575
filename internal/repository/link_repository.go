package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ajithvnr2001/edgelink/internal/models"
	"github.com/ajithvnr2001/edgelink/pkg/metrics"
)

// ErrNotFound is returned when no link record exists for a slug.
var ErrNotFound = errors.New("link record not found")

// LinkRepository is the Postgres-backed link record store. The redirect
// engine only reads records and bumps the advisory click counter; record
// creation belongs to the link-management service.
type LinkRepository struct {
	db *sql.DB
}

func NewLinkRepository(db *sql.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

// FindBySlug performs the point lookup on the critical path. Routing rule
// documents live in JSONB columns and unmarshal through the models'
// sql.Scanner implementations.
func (r *LinkRepository) FindBySlug(ctx context.Context, slug string) (*models.LinkRecord, error) {
	query := `
        SELECT id, slug, destination, owner_plan, created_at, updated_at,
               expires_at, max_clicks, click_count, password_hash,
               device_routing, geo_routing, referrer_routing, time_routing,
               ab_test, utm_template
        FROM links
        WHERE slug = $1
    `

	start := time.Now()
	row := r.db.QueryRowContext(ctx, query, slug)
	defer func() {
		metrics.DatabaseQueryDuration.WithLabelValues("find_by_slug").Observe(time.Since(start).Seconds())
	}()

	var (
		record       models.LinkRecord
		expiresAt    sql.NullTime
		maxClicks    sql.NullInt64
		passwordHash sql.NullString
		deviceRaw    []byte
		geoRaw       []byte
		referrerRaw  []byte
		timeRaw      []byte
		abRaw        []byte
		utmTemplate  sql.NullString
	)

	err := row.Scan(
		&record.ID, &record.Slug, &record.Destination, &record.OwnerPlan,
		&record.CreatedAt, &record.UpdatedAt,
		&expiresAt, &maxClicks, &record.ClickCount, &passwordHash,
		&deviceRaw, &geoRaw, &referrerRaw, &timeRaw,
		&abRaw, &utmTemplate,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find link %q: %w", slug, err)
	}

	if expiresAt.Valid {
		record.ExpiresAt = &expiresAt.Time
	}
	if maxClicks.Valid {
		record.MaxClicks = &maxClicks.Int64
	}
	record.PasswordHash = passwordHash.String
	record.UTMTemplate = utmTemplate.String

	if len(deviceRaw) > 0 {
		if err := record.DeviceRouting.Scan(deviceRaw); err != nil {
			return nil, fmt.Errorf("decode device routing for %q: %w", slug, err)
		}
	}
	if len(geoRaw) > 0 {
		if err := record.GeoRouting.Scan(geoRaw); err != nil {
			return nil, fmt.Errorf("decode geo routing for %q: %w", slug, err)
		}
	}
	if len(referrerRaw) > 0 {
		if err := record.ReferrerRouting.Scan(referrerRaw); err != nil {
			return nil, fmt.Errorf("decode referrer routing for %q: %w", slug, err)
		}
	}
	if len(timeRaw) > 0 {
		if err := record.TimeRouting.Scan(timeRaw); err != nil {
			return nil, fmt.Errorf("decode time routing for %q: %w", slug, err)
		}
	}
	if len(abRaw) > 0 {
		var ab models.ABTest
		if err := ab.Scan(abRaw); err != nil {
			return nil, fmt.Errorf("decode ab test for %q: %w", slug, err)
		}
		record.ABTest = &ab
	}

	return &record, nil
}

// IncrementClickCount bumps the advisory counter used for max_clicks
// enforcement. It runs off the response path; increments racing across
// concurrent requests are acceptable.
func (r *LinkRepository) IncrementClickCount(ctx context.Context, slug string) error {
	start := time.Now()
	_, err := r.db.ExecContext(ctx,
		`UPDATE links SET click_count = click_count + 1 WHERE slug = $1`, slug)
	metrics.DatabaseQueryDuration.WithLabelValues("increment_clicks").Observe(time.Since(start).Seconds())
	return err
}
