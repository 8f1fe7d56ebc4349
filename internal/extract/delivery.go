package extract

import (
	"github.com/pocketmoney/chatledger/internal/model"
	"github.com/pocketmoney/chatledger/internal/pattern"
	"github.com/pocketmoney/chatledger/internal/phone"
)

// extractDelivery pulls an address and a requested time out of a delivery
// message. The 0.5 baseline sits below the review threshold on purpose:
// a delivery keyword alone is not enough to act on.
func (e *Extractor) extractDelivery(msg model.Message, content string) (*model.DeliveryPayload, float64) {
	payload := &model.DeliveryPayload{Instructions: content}
	confidence := 0.5

	if m, ok := e.lib.Address.First(content); ok {
		payload.Address = m.Group("address")
		confidence = pattern.Raise(confidence, m.Rule.Weight)
	}

	if m, ok := e.lib.DeliveryTime.First(content); ok {
		payload.DeliveryTime = m.Group("time")
		confidence = pattern.Raise(confidence, m.Rule.Weight)
	}

	if m, ok := e.lib.ContactPhone.First(content); ok {
		payload.CustomerPhone = phone.Normalize(m.Group("phone"))
		confidence = pattern.Raise(confidence, 0.7)
	} else if msg.SenderPhone != "" {
		payload.CustomerPhone = phone.Normalize(msg.SenderPhone)
	}

	return payload, confidence
}
