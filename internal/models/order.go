package models

import "time"

// Order is a customer's service request. An order may exist without an
// appointment: slot confirmation is decoupled from order submission so a
// lost race on a popular slot never loses the customer's intent.
type Order struct {
	ID                string    `json:"id"`
	Service           string    `json:"service"`
	Formula           string    `json:"formula,omitempty"`
	Price             float64   `json:"price"`
	ClientName        string    `json:"client_name"`
	ClientEmail       string    `json:"client_email"`
	ClientPhone       string    `json:"client_phone,omitempty"`
	ClientDescription string    `json:"client_description,omitempty"`
	Status            string    `json:"status"` // pending, confirmed, in_progress, completed, cancelled
	AdminNotes        string    `json:"admin_notes,omitempty"`
	AppointmentID     string    `json:"appointment_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
