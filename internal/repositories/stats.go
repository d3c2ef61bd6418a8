package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"event-marketplace/internal/models"
)

// StatsRepository aggregates marketplace counts for the admin console
type StatsRepository struct {
	db *sql.DB
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Stats returns counts of events, organizers and bookings by status
func (r *StatsRepository) Stats(ctx context.Context) (*models.AdminStats, error) {
	stats := &models.AdminStats{
		EventsByStatus:     map[models.EventStatus]int{},
		OrganizersByStatus: map[models.OrganizerStatus]int{},
		BookingsByStatus:   map[models.BookingStatus]int{},
	}

	if err := countByStatus(ctx, r.db, "events", func(status string, n int) {
		stats.EventsByStatus[models.EventStatus(status)] = n
	}); err != nil {
		return nil, err
	}
	if err := countByStatus(ctx, r.db, "organizers", func(status string, n int) {
		stats.OrganizersByStatus[models.OrganizerStatus(status)] = n
	}); err != nil {
		return nil, err
	}
	if err := countByStatus(ctx, r.db, "bookings", func(status string, n int) {
		stats.BookingsByStatus[models.BookingStatus(status)] = n
	}); err != nil {
		return nil, err
	}

	if err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total), 0) FROM bookings WHERE status IN ('BOOKED', 'USED')`,
	).Scan(&stats.GrossBooked); err != nil {
		return nil, fmt.Errorf("failed to sum bookings: %w", err)
	}
	return stats, nil
}

// table is always one of the constant names above, never user input
func countByStatus(ctx context.Context, db *sql.DB, table string, add func(string, int)) error {
	rows, err := db.QueryContext(ctx, `SELECT status, COUNT(*) FROM `+table+` GROUP BY status`)
	if err != nil {
		return fmt.Errorf("failed to count %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return fmt.Errorf("failed to scan %s count: %w", table, err)
		}
		add(status, n)
	}
	return rows.Err()
}
