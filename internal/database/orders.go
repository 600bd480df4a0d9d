package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dataikos/internal/models"

	"github.com/google/uuid"
)

const orderColumns = `id, service, COALESCE(formula, ''), price, client_name, client_email,
                 COALESCE(client_phone, ''), COALESCE(client_description, ''), status,
                 COALESCE(admin_notes, ''), COALESCE(appointment_id, ''), created_at, updated_at`

// CreateOrder persists a new order in status pending.
func (db *DB) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	now := time.Now()

	query := `INSERT INTO orders (
                id, service, formula, price, client_name, client_email,
                client_phone, client_description, status, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		order.ID,
		order.Service,
		order.Formula,
		order.Price,
		order.ClientName,
		order.ClientEmail,
		order.ClientPhone,
		order.ClientDescription,
		models.StatusPending,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	order.Status = models.StatusPending
	order.CreatedAt = now
	order.UpdatedAt = now
	return nil
}

// GetOrder returns an order by id.
func (db *DB) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	order, err := scanOrder(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// ListOrders returns orders, newest first, optionally filtered by status.
func (db *DB) ListOrders(ctx context.Context, status string, limit, offset int) ([]*models.Order, error) {
	if limit <= 0 {
		limit = models.DefaultListLimit
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// UpdateOrderStatus sets a new status and optional admin notes.
func (db *DB) UpdateOrderStatus(ctx context.Context, id, status, adminNotes string) error {
	query := `UPDATE orders SET status = ?, updated_at = ?`
	args := []interface{}{status, time.Now()}
	if adminNotes != "" {
		query += `, admin_notes = ?`
		args = append(args, adminNotes)
	}
	query += ` WHERE id = ?`
	args = append(args, id)

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// AttachAppointment links a freshly booked appointment to its order and
// moves the order to confirmed.
func (db *DB) AttachAppointment(ctx context.Context, orderID, appointmentID string) error {
	query := `UPDATE orders SET appointment_id = ?, status = ?, updated_at = ? WHERE id = ?`
	res, err := db.ExecContext(ctx, query, appointmentID, models.StatusConfirmed, time.Now(), orderID)
	if err != nil {
		return fmt.Errorf("failed to attach appointment: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// DetachAppointment clears the appointment link, used when the appointment
// is cancelled.
func (db *DB) DetachAppointment(ctx context.Context, orderID string) error {
	query := `UPDATE orders SET appointment_id = NULL, updated_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, time.Now(), orderID)
	if err != nil {
		return fmt.Errorf("failed to detach appointment: %w", err)
	}
	return nil
}

// DeleteOrder removes the order row. Cancelling any active appointment
// first is the service layer's job.
func (db *DB) DeleteOrder(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var order models.Order
	err := row.Scan(
		&order.ID, &order.Service, &order.Formula, &order.Price,
		&order.ClientName, &order.ClientEmail, &order.ClientPhone,
		&order.ClientDescription, &order.Status, &order.AdminNotes,
		&order.AppointmentID, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &order, nil
}
