package extract

import (
	"strconv"

	"github.com/pocketmoney/chatledger/internal/model"
	"github.com/pocketmoney/chatledger/internal/pattern"
)

// extractPayment pulls the amount, reference, and payment rail out of a
// payment confirmation. The 0.6 baseline reflects that the classifier
// already saw a payment phrase; specific evidence raises it from there,
// with a named bank the strongest signal of all.
func (e *Extractor) extractPayment(msg model.Message, content string) (*model.PaymentPayload, float64) {
	// SenderInfo is a verbatim copy of the sender display name; nothing is
	// extracted from the message for it.
	payload := &model.PaymentPayload{
		Method:     model.PaymentMethodUnknown,
		SenderInfo: msg.SenderName,
	}
	confidence := 0.6

	if m, ok := e.lib.Amount.First(content); ok {
		if amount, err := strconv.ParseFloat(m.Group("amount"), 64); err == nil {
			payload.Amount = amount
			confidence = pattern.Raise(confidence, 0.8)
		}
	}

	// A quoted reference number implies a bank transfer even when the
	// message never says "transfer".
	if m, ok := e.lib.PaymentRef.First(content); ok {
		payload.ReferenceNumber = m.Group("ref")
		payload.Method = model.PaymentMethodBankTransfer
		confidence = pattern.Raise(confidence, 0.9)
	}

	if m, ok := e.lib.Bank.First(content); ok {
		payload.Method = model.PaymentMethodBankTransfer
		payload.BankName = m.Group("bank")
		confidence = pattern.Raise(confidence, 0.95)
		return payload, confidence
	}

	// Wallet and generic transfer signals only apply when no bank was
	// named, so they can never shadow the stronger match.
	if _, ok := e.lib.Wallet.First(content); ok {
		payload.Method = model.PaymentMethodEWallet
		confidence = pattern.Raise(confidence, 0.9)
	} else if _, ok := e.lib.Transfer.First(content); ok {
		payload.Method = model.PaymentMethodBankTransfer
		confidence = pattern.Raise(confidence, 0.85)
	}

	return payload, confidence
}
