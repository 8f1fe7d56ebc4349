package model

import (
	"fmt"
	"time"
)

// Language tags the detected language of a message. Pattern rules additionally
// use LanguageBoth for bilingual phrasings; the detector never returns it.
type Language string

// Supported language tags.
const (
	LanguageMalay   Language = "ms"
	LanguageEnglish Language = "en"
	LanguageBoth    Language = "both"
)

// ExtractionStatus indicates how a stored extraction left the pipeline.
type ExtractionStatus string

// Extraction status constants.
const (
	StatusProcessed   ExtractionStatus = "PROCESSED"
	StatusNeedsReview ExtractionStatus = "NEEDS_REVIEW"
)

// ReviewThreshold is the pipeline-wide confidence policy: strictly above it an
// extraction counts as processed, at or below it is queued for manual review.
const ReviewThreshold = 0.7

// StatusFor derives the storage status for a confidence score.
func StatusFor(confidence float64) ExtractionStatus {
	if confidence > ReviewThreshold {
		return StatusProcessed
	}
	return StatusNeedsReview
}

// Payment method labels produced by the payment extractor.
const (
	PaymentMethodUnknown      = "Unknown"
	PaymentMethodBankTransfer = "Bank Transfer"
	PaymentMethodEWallet      = "E-Wallet"
)

// OrderItem is a single line item extracted from an order message.
type OrderItem struct {
	UnitPrice *float64 `json:"unit_price,omitempty"`
	Name      string   `json:"name"`
	Quantity  int      `json:"quantity"`
}

// OrderPayload holds the structured fields of an order message.
type OrderPayload struct {
	TotalAmount   *float64    `json:"total_amount,omitempty"`
	CustomerName  string      `json:"customer_name,omitempty"`
	CustomerPhone string      `json:"customer_phone,omitempty"`
	Notes         string      `json:"notes"`
	Items         []OrderItem `json:"items"`
}

// PaymentPayload holds the structured fields of a payment confirmation.
// Amount is 0 rather than absent when no amount could be extracted.
type PaymentPayload struct {
	Method          string  `json:"method"`
	ReferenceNumber string  `json:"reference_number,omitempty"`
	BankName        string  `json:"bank_name,omitempty"`
	SenderInfo      string  `json:"sender_info,omitempty"`
	Amount          float64 `json:"amount"`
}

// DeliveryPayload holds the structured fields of a delivery message.
type DeliveryPayload struct {
	Address       string `json:"address,omitempty"`
	DeliveryTime  string `json:"delivery_time,omitempty"`
	Instructions  string `json:"instructions"`
	CustomerPhone string `json:"customer_phone,omitempty"`
}

// Extraction is the structured result of classifying and parsing one inbound
// message. Exactly one payload pointer is set, keyed by Category;
// CategoryInquiry carries none.
type Extraction struct {
	Order      *OrderPayload    `json:"order,omitempty"`
	Payment    *PaymentPayload  `json:"payment,omitempty"`
	Delivery   *DeliveryPayload `json:"delivery,omitempty"`
	Category   Category         `json:"category"`
	RawText    string           `json:"raw_text"`
	Language   Language         `json:"language,omitempty"`
	Confidence float64          `json:"confidence"`
}

// Validate checks the tagged-union and confidence invariants.
func (e *Extraction) Validate() error {
	if !e.Category.Valid() {
		return fmt.Errorf("invalid category %q", e.Category)
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", e.Confidence)
	}

	set := 0
	if e.Order != nil {
		set++
	}
	if e.Payment != nil {
		set++
	}
	if e.Delivery != nil {
		set++
	}

	switch e.Category {
	case CategoryOrder:
		if e.Order == nil || set != 1 {
			return fmt.Errorf("category %s requires exactly an order payload", e.Category)
		}
	case CategoryPayment:
		if e.Payment == nil || set != 1 {
			return fmt.Errorf("category %s requires exactly a payment payload", e.Category)
		}
	case CategoryDelivery:
		if e.Delivery == nil || set != 1 {
			return fmt.Errorf("category %s requires exactly a delivery payload", e.Category)
		}
	case CategoryInquiry:
		if set != 0 {
			return fmt.Errorf("category %s carries no payload", e.Category)
		}
	}
	return nil
}

// StoredExtraction is an extraction persisted for a user, plus pipeline
// metadata. Records are written once and never mutated afterwards, except
// through ApplyCorrection.
type StoredExtraction struct {
	CreatedAt   time.Time        `json:"created_at"`
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	SenderName  string           `json:"sender_name,omitempty"`
	SenderPhone string           `json:"sender_phone,omitempty"`
	Status      ExtractionStatus `json:"status"`
	Extraction
	ManuallyCorrected bool `json:"manually_corrected"`
}

// Correction is an operator-supplied override for a stored extraction.
// Nil fields leave the stored value untouched.
type Correction struct {
	Category *Category
	Order    *OrderPayload
	Payment  *PaymentPayload
	Delivery *DeliveryPayload
}

// Empty reports whether the correction changes nothing.
func (c Correction) Empty() bool {
	return c.Category == nil && c.Order == nil && c.Payment == nil && c.Delivery == nil
}

// ApplyCorrection overwrites the fields supplied in corr, forces confidence to
// 1.0 and marks the record manually corrected. This is the only sanctioned
// mutation of a stored extraction.
func (s *StoredExtraction) ApplyCorrection(corr Correction) error {
	if corr.Category != nil {
		if !corr.Category.Valid() {
			return fmt.Errorf("invalid category %q", *corr.Category)
		}
		s.Category = *corr.Category
	}
	if corr.Order != nil {
		s.Order = corr.Order
	}
	if corr.Payment != nil {
		s.Payment = corr.Payment
	}
	if corr.Delivery != nil {
		s.Delivery = corr.Delivery
	}

	// Re-key the union: drop payloads that no longer match the category and
	// synthesize an empty one when the new category has none supplied.
	switch s.Category {
	case CategoryOrder:
		if s.Order == nil {
			s.Order = &OrderPayload{Notes: s.RawText}
		}
		s.Payment, s.Delivery = nil, nil
	case CategoryPayment:
		if s.Payment == nil {
			s.Payment = &PaymentPayload{Method: PaymentMethodUnknown}
		}
		s.Order, s.Delivery = nil, nil
	case CategoryDelivery:
		if s.Delivery == nil {
			s.Delivery = &DeliveryPayload{Instructions: s.RawText}
		}
		s.Order, s.Payment = nil, nil
	case CategoryInquiry:
		s.Order, s.Payment, s.Delivery = nil, nil, nil
	}

	s.Confidence = 1.0
	s.ManuallyCorrected = true
	s.Status = StatusProcessed
	return s.Validate()
}
