package model

import "time"

// Order is a persisted order created from an order extraction. ExtractionID
// links back to the extraction that produced it.
type Order struct {
	CreatedAt     time.Time   `json:"created_at"`
	TotalAmount   *float64    `json:"total_amount,omitempty"`
	ID            string      `json:"id"`
	UserID        string      `json:"user_id"`
	ExtractionID  string      `json:"extraction_id,omitempty"`
	CustomerName  string      `json:"customer_name,omitempty"`
	CustomerPhone string      `json:"customer_phone,omitempty"`
	Notes         string      `json:"notes,omitempty"`
	Items         []OrderItem `json:"items"`
}
