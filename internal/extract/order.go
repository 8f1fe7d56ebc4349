package extract

import (
	"strconv"

	"github.com/pocketmoney/chatledger/internal/model"
	"github.com/pocketmoney/chatledger/internal/pattern"
	"github.com/pocketmoney/chatledger/internal/phone"
)

// extractOrder pulls line items, a total, and customer contact details out
// of an order message. Confidence starts at zero and rises to the weight
// of the strongest matched rule.
func (e *Extractor) extractOrder(msg model.Message, content string) (*model.OrderPayload, float64) {
	payload := &model.OrderPayload{Notes: content}
	confidence := 0.0

	for _, m := range e.lib.Order.FindAll(content) {
		item := model.OrderItem{
			Name:     m.Group("item"),
			Quantity: 1,
		}
		if qty, err := strconv.Atoi(m.Group("qty")); err == nil && qty > 0 {
			item.Quantity = qty
		}
		if price, err := strconv.ParseFloat(m.Group("price"), 64); err == nil {
			item.UnitPrice = &price
		}
		payload.Items = append(payload.Items, item)
		confidence = pattern.Raise(confidence, m.Rule.Weight)
	}

	if m, ok := e.lib.Amount.First(content); ok {
		if amount, err := strconv.ParseFloat(m.Group("amount"), 64); err == nil {
			payload.TotalAmount = &amount
			confidence = pattern.Raise(confidence, m.Rule.Weight)
		}
	}

	if m, ok := e.lib.ContactName.First(content); ok {
		payload.CustomerName = m.Group("name")
	} else {
		payload.CustomerName = msg.SenderName
	}

	if m, ok := e.lib.ContactPhone.First(content); ok {
		payload.CustomerPhone = phone.Normalize(m.Group("phone"))
	} else if msg.SenderPhone != "" {
		payload.CustomerPhone = phone.Normalize(msg.SenderPhone)
	}

	return payload, confidence
}
