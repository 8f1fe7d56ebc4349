// Package model defines the core domain models used throughout the application.
package model

// Category is the top-level classification assigned to an inbound message.
type Category string

// Message categories. A message is assigned exactly one.
const (
	// CategoryOrder marks messages that place or amend an order.
	CategoryOrder Category = "ORDER"
	// CategoryPayment marks payment confirmations and transfer notices.
	CategoryPayment Category = "PAYMENT"
	// CategoryDelivery marks delivery details and address messages.
	CategoryDelivery Category = "DELIVERY_CONFIRMATION"
	// CategoryInquiry is the fallback for messages matching no other category.
	CategoryInquiry Category = "CUSTOMER_INQUIRY"
)

// Valid reports whether c is one of the defined categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryOrder, CategoryPayment, CategoryDelivery, CategoryInquiry:
		return true
	}
	return false
}

// Categories lists every defined category in display order.
func Categories() []Category {
	return []Category{CategoryOrder, CategoryPayment, CategoryDelivery, CategoryInquiry}
}
