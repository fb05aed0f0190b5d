package email

import (
	"fmt"
	"strings"
	"time"

	"github.com/codr1/marketplace/internal/db/dbq"
	"github.com/codr1/marketplace/internal/slots"
)

type Message struct {
	Subject string
	Body    string
}

type OrderDetails struct {
	ShopName  string
	ItemName  string
	Reference string
	VisitAt   time.Time
	Quantity  int64
	Notes     string
}

// DetailsFromOrder renders the visit in the zone the customer booked from.
func DetailsFromOrder(o dbq.OrderDetail) OrderDetails {
	visit := o.VisitAt
	if loc, err := slots.ZoneForOffset(int(o.TimezoneOffset)); err == nil {
		visit = visit.In(loc)
	}
	return OrderDetails{
		ShopName:  o.ShopName,
		ItemName:  o.CatalogueName,
		Reference: o.Reference,
		VisitAt:   visit,
		Quantity:  o.Quantity,
		Notes:     o.Notes,
	}
}

func FormatVisit(t time.Time) (string, string) {
	return t.Format("Monday, Jan 2, 2006"), fmt.Sprintf("%s %s", t.Format("3:04 PM"), t.Format("MST"))
}

func StatusLabel(status string) string {
	switch strings.TrimSpace(status) {
	case "pending":
		return "Received"
	case "confirmed":
		return "Confirmed"
	case "rejected":
		return "Declined"
	case "cancelled":
		return "Cancelled"
	case "completed":
		return "Completed"
	case "expired":
		return "Expired"
	}
	return "Updated"
}

// BuildOrderReceived is sent to the customer when an order is placed.
func BuildOrderReceived(details OrderDetails) Message {
	return buildOrderEmail(
		"Booking Request Received",
		"We have sent your booking request to the shop. You will hear from us once it is confirmed.",
		details,
	)
}

// BuildStatusEmail is sent when the vendor or the customer changes an order's status.
func BuildStatusEmail(details OrderDetails, status string) Message {
	label := StatusLabel(status)
	var intro string
	switch status {
	case "confirmed":
		intro = "Good news: the shop has confirmed your booking."
	case "rejected":
		intro = "Unfortunately the shop could not accept your booking."
	case "cancelled":
		intro = "Your booking has been cancelled."
	case "expired":
		intro = "Your booking request expired before the shop answered it."
	default:
		intro = fmt.Sprintf("Your booking is now %s.", strings.ToLower(label))
	}
	return buildOrderEmail("Booking "+label, intro, details)
}

func BuildReminderEmail(details OrderDetails) Message {
	return buildOrderEmail("Upcoming Visit Reminder", "Reminder: your visit is coming up.", details)
}

func buildOrderEmail(subjectPrefix, intro string, details OrderDetails) Message {
	shopName := strings.TrimSpace(details.ShopName)
	if shopName == "" {
		shopName = "your shop"
	}
	itemName := strings.TrimSpace(details.ItemName)
	if itemName == "" {
		itemName = "General visit"
	}
	date, timeOfDay := "TBD", "TBD"
	if !details.VisitAt.IsZero() {
		date, timeOfDay = FormatVisit(details.VisitAt)
	}

	lines := []string{
		intro,
		"",
		fmt.Sprintf("Shop: %s", shopName),
		fmt.Sprintf("Item: %s", itemName),
		fmt.Sprintf("Date: %s", date),
		fmt.Sprintf("Time: %s", timeOfDay),
	}
	if details.Quantity > 1 {
		lines = append(lines, fmt.Sprintf("Quantity: %d", details.Quantity))
	}
	if notes := strings.TrimSpace(details.Notes); notes != "" {
		lines = append(lines, fmt.Sprintf("Notes: %s", notes))
	}
	if details.Reference != "" {
		lines = append(lines, fmt.Sprintf("Reference: %s", details.Reference))
	}

	return Message{
		Subject: fmt.Sprintf("%s - %s", subjectPrefix, shopName),
		Body:    strings.Join(lines, "\n"),
	}
}
