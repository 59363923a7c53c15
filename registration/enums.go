package registration

import (
	"fmt"
	"strings"
)

type Gender int

const (
	MALE Gender = iota
	FEMALE
	OTHER
)

func (g Gender) String() string {
	switch g {
	case MALE:
		return "male"
	case FEMALE:
		return "female"
	case OTHER:
		return "other"
	default:
		return fmt.Sprintf("Gender(%d)", int(g))
	}
}

func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male":
		return MALE, nil
	case "female":
		return FEMALE, nil
	case "other":
		return OTHER, nil
	default:
		return Gender(0), fmt.Errorf("unknown gender: %q", s)
	}
}

type FoodPreference int

const (
	VEG FoodPreference = iota
	NON_VEG
)

func (f FoodPreference) String() string {
	switch f {
	case VEG:
		return "veg"
	case NON_VEG:
		return "non-veg"
	default:
		return fmt.Sprintf("FoodPreference(%d)", int(f))
	}
}

func ParseFoodPreference(s string) (FoodPreference, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "veg":
		return VEG, nil
	case "non-veg":
		return NON_VEG, nil
	default:
		return FoodPreference(0), fmt.Errorf("unknown food preference: %q", s)
	}
}

type PaymentStatus int

const (
	PENDING PaymentStatus = iota
	COMPLETED
	FAILED
)

func (p PaymentStatus) String() string {
	switch p {
	case PENDING:
		return "pending"
	case COMPLETED:
		return "completed"
	case FAILED:
		return "failed"
	default:
		return fmt.Sprintf("PaymentStatus(%d)", int(p))
	}
}

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return PENDING, nil
	case "completed":
		return COMPLETED, nil
	case "failed":
		return FAILED, nil
	default:
		return PaymentStatus(0), fmt.Errorf("unknown payment status: %q", s)
	}
}
