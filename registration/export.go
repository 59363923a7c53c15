package registration

import (
	"encoding/csv"
	"fmt"
	"io"
)

var csvHeader = []string{"Name", "Email", "Phone", "Gender", "Food Preference", "Payment Status", "Payment ID", "Registration Date", "Has Photo"}

// WriteCSV writes regs in the order given, one row per registration.
func WriteCSV(w io.Writer, regs []Registration) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, reg := range regs {
		hasPhoto := "No"
		if reg.HasPhoto() {
			hasPhoto = "Yes"
		}

		row := []string{
			reg.Name,
			reg.Email,
			reg.Phone,
			reg.Gender.String(),
			reg.FoodPreference.String(),
			reg.PaymentStatus.String(),
			reg.PaymentReference,
			reg.RegisteredAt.Format("2006-01-02"),
			hasPhoto,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row for %s: %w", reg.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
