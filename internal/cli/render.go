package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pocketmoney/chatledger/internal/model"
)

// Money formats an amount in ringgit.
func Money(amount float64) string {
	return "RM" + strconv.FormatFloat(amount, 'f', 2, 64)
}

// SenderLabel renders a sender as "Name (+60...)", falling back to whichever
// half is present.
func SenderLabel(name, phone string) string {
	switch {
	case name != "" && phone != "":
		return fmt.Sprintf("%s (%s)", name, phone)
	case name != "":
		return name
	default:
		return phone
	}
}

// RenderExtraction renders a stored extraction as a detail card.
func RenderExtraction(ext *model.StoredExtraction) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s  %s  %s\n",
		CategoryIcon(ext.Category),
		BoldStyle.Render(string(ext.Category)),
		FormatConfidence(ext.Confidence),
		StatusBadge(ext.Status))

	if sender := SenderLabel(ext.SenderName, ext.SenderPhone); sender != "" {
		fmt.Fprintf(&b, "From: %s\n", sender)
	}
	if !ext.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", ext.CreatedAt.Format("2006-01-02 15:04"))
	}
	if ext.Language != "" {
		fmt.Fprintf(&b, "Language: %s\n", ext.Language)
	}
	if ext.ManuallyCorrected {
		b.WriteString(InfoStyle.Render("Manually corrected") + "\n")
	}

	switch {
	case ext.Order != nil:
		renderOrder(&b, ext.Order)
	case ext.Payment != nil:
		renderPayment(&b, ext.Payment)
	case ext.Delivery != nil:
		renderDelivery(&b, ext.Delivery)
	}

	b.WriteString(SubtleStyle.Render("> " + ext.RawText))
	return b.String()
}

func renderOrder(b *strings.Builder, order *model.OrderPayload) {
	if len(order.Items) > 0 {
		b.WriteString("Items:\n")
		for _, item := range order.Items {
			line := fmt.Sprintf("  %dx %s", item.Quantity, item.Name)
			if item.UnitPrice != nil {
				line += " @ " + Money(*item.UnitPrice)
			}
			b.WriteString(line + "\n")
		}
	}
	if order.TotalAmount != nil {
		fmt.Fprintf(b, "Total: %s\n", BoldStyle.Render(Money(*order.TotalAmount)))
	}
	if customer := SenderLabel(order.CustomerName, order.CustomerPhone); customer != "" {
		fmt.Fprintf(b, "Customer: %s\n", customer)
	}
}

func renderPayment(b *strings.Builder, payment *model.PaymentPayload) {
	fmt.Fprintf(b, "Method: %s\n", payment.Method)
	if payment.Amount > 0 {
		fmt.Fprintf(b, "Amount: %s\n", BoldStyle.Render(Money(payment.Amount)))
	}
	if payment.BankName != "" {
		fmt.Fprintf(b, "Bank: %s\n", payment.BankName)
	}
	if payment.ReferenceNumber != "" {
		fmt.Fprintf(b, "Reference: %s\n", payment.ReferenceNumber)
	}
	if payment.SenderInfo != "" {
		fmt.Fprintf(b, "Paid by: %s\n", payment.SenderInfo)
	}
}

func renderDelivery(b *strings.Builder, delivery *model.DeliveryPayload) {
	if delivery.Address != "" {
		fmt.Fprintf(b, "Address: %s\n", delivery.Address)
	}
	if delivery.DeliveryTime != "" {
		fmt.Fprintf(b, "Time: %s\n", delivery.DeliveryTime)
	}
	if delivery.CustomerPhone != "" {
		fmt.Fprintf(b, "Contact: %s\n", delivery.CustomerPhone)
	}
}

// RenderOrder renders a stored order as a detail card.
func RenderOrder(order *model.Order) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", OrderIcon, BoldStyle.Render("Order "+order.ID))
	if !order.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", order.CreatedAt.Format("2006-01-02 15:04"))
	}

	renderOrder(&b, &model.OrderPayload{
		TotalAmount:   order.TotalAmount,
		CustomerName:  order.CustomerName,
		CustomerPhone: order.CustomerPhone,
		Items:         order.Items,
	})

	if order.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", order.Notes)
	}
	if order.ExtractionID != "" {
		b.WriteString(SubtleStyle.Render("from extraction " + order.ExtractionID))
	}
	return b.String()
}

// RenderUsage renders the month's quota counter.
func RenderUsage(usage *model.FeatureUsage) string {
	if usage.Limit <= 0 {
		return fmt.Sprintf("%d extractions this month (no limit)", usage.Count)
	}

	line := fmt.Sprintf("%d / %d extractions used in %s", usage.Count, usage.Limit, usage.MonthKey)
	switch {
	case usage.Exceeded():
		return FormatError(line + " (quota exhausted)")
	case usage.Remaining() <= 5:
		return FormatWarning(fmt.Sprintf("%s (%d left)", line, usage.Remaining()))
	default:
		return FormatSuccess(fmt.Sprintf("%s (%d left)", line, usage.Remaining()))
	}
}
