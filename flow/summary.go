package flow

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/classof2022/reunion-registration/events"
)

var whitespace = regexp.MustCompile(`\s+`)

// Summary is the success page content. It is built from the hand-off only;
// an empty hand-off gives a generic confirmation.
type Summary struct {
	Generic          bool
	Name             string
	Email            string
	Phone            string
	FoodPreference   string
	PaymentReference string
	AmountPaid       string
	PhotoURL         string
	EventName        string
	Date             string
	Time             string
	Venue            string
	WhatsAppLink     string
}

func Summarize(h Handoff, catalog events.Catalog) Summary {
	s := Summary{
		Generic:      h.IsEmpty() || !h.HasPayment(),
		EventName:    catalog.Name,
		Date:         catalog.DateString(),
		Time:         catalog.TimeString(),
		Venue:        catalog.EventLocation.String(),
		WhatsAppLink: catalog.WhatsAppLink,
	}
	if s.Generic {
		return s
	}

	s.Name = h.Registrant.Name
	s.Email = h.Registrant.Email
	s.Phone = h.Registrant.Phone
	s.FoodPreference = h.Registrant.FoodPreference.String()
	s.PaymentReference = h.PaymentReference
	if h.AmountPaid != nil {
		s.AmountPaid = h.AmountPaid.Display()
	}
	s.PhotoURL = h.PhotoURL
	return s
}

// Ticket is a plain text courtesy ticket. It is not a verifiable credential.
func Ticket(h Handoff, catalog events.Catalog) string {
	s := Summarize(h, catalog)

	name := s.Name
	paymentRef := s.PaymentReference
	if s.Generic {
		name = "N/A"
		paymentRef = "N/A"
	}

	// Hand-offs from before the amount was carried fall back to the fee.
	amount := s.AmountPaid
	if amount == "" && catalog.Fee != nil {
		amount = catalog.Fee.Display()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🎓 %s TICKET 🎓\n\n", strings.ToUpper(catalog.Name))
	fmt.Fprintf(&b, "Name: %s\n", name)
	fmt.Fprintf(&b, "Event: %s\n", catalog.Name)
	fmt.Fprintf(&b, "Date: %s\n", s.Date)
	fmt.Fprintf(&b, "Time: %s\n", s.Time)
	fmt.Fprintf(&b, "Venue: %s\n", s.Venue)
	fmt.Fprintf(&b, "Payment ID: %s\n", paymentRef)
	fmt.Fprintf(&b, "Amount Paid: %s\n\n", amount)
	b.WriteString("This is your entry pass to the reunion.\n")
	b.WriteString("Please save this ticket and show it at the venue.\n\n")
	b.WriteString("See you there! 🎉\n")

	return b.String()
}

func TicketFilename(h Handoff) string {
	name := strings.TrimSpace(h.Registrant.Name)
	if h.IsEmpty() || name == "" {
		name = "guest"
	}
	return "reunion-ticket-" + whitespace.ReplaceAllString(name, "-") + ".txt"
}
