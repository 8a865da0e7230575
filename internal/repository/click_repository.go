package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/ajithvnr2001/edgelink/internal/models"
	"github.com/ajithvnr2001/edgelink/pkg/metrics"
)

// ClickRepository appends click events to the analytics table. Events are
// write-once and never read back by the engine.
type ClickRepository struct {
	db *sql.DB
}

func NewClickRepository(db *sql.DB) *ClickRepository {
	return &ClickRepository{db: db}
}

func (r *ClickRepository) Insert(ctx context.Context, event *models.ClickEvent) error {
	query := `
        INSERT INTO click_events
            (slug, clicked_at, device_class, country, browser, os, referrer, variant)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `

	start := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		event.Slug, event.Timestamp, event.DeviceClass,
		event.Country, event.Browser, event.OS, event.Referrer, event.Variant,
	)
	metrics.DatabaseQueryDuration.WithLabelValues("insert_click").Observe(time.Since(start).Seconds())
	return err
}
