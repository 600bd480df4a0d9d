package database

import (
	"context"
	"fmt"
	"time"

	"dataikos/internal/models"
)

// GetDashboardStats returns aggregate counts for the admin dashboard.
func (db *DB) GetDashboardStats(ctx context.Context, now time.Time) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}

	query := `SELECT status, COUNT(*) FROM orders GROUP BY status`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get order stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan order stats: %w", err)
		}
		stats.TotalOrders += count
		switch status {
		case models.StatusPending:
			stats.PendingOrders = count
		case models.StatusConfirmed:
			stats.ConfirmedOrders = count
		case models.StatusCompleted:
			stats.CompletedOrders = count
		case models.StatusCancelled:
			stats.CancelledOrders = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	upcoming := `SELECT COUNT(*)
                 FROM appointments a
                 JOIN time_slots s ON s.id = a.time_slot_id
                 WHERE a.status = ?
                   AND (date(s.date) || ' ' || s.start_time) >= ?`
	err = db.QueryRowContext(ctx, upcoming, models.StatusConfirmed, now.Format("2006-01-02 15:04")).
		Scan(&stats.UpcomingAppointments)
	if err != nil {
		return nil, fmt.Errorf("failed to get upcoming appointments count: %w", err)
	}

	return stats, nil
}
