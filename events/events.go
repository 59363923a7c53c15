package events

import (
	"time"

	"github.com/Rhymond/go-money"
)

// Catalog holds the fixed facts about the reunion.
type Catalog struct {
	Name           string
	StartTime      time.Time
	EndTime        time.Time
	EventLocation  Location
	Fee            *money.Money
	WhatsAppLink   string
	SupportContact string
	FoodMenu       []FoodItem
	Timeline       []TimelineEntry
}

type FoodItem struct {
	ID          string
	Name        string
	ImageURL    string
	Veg         bool
	Description string
}

type TimelineEntry struct {
	Time     string
	Activity string
}

// Source hands out the current catalog. Implementations may swap the catalog
// at runtime, so callers should read it once per operation.
type Source interface {
	Catalog() Catalog
}

type StaticSource struct {
	catalog Catalog
}

var _ Source = (*StaticSource)(nil)

func NewStaticSource(catalog Catalog) *StaticSource {
	return &StaticSource{catalog: catalog}
}

func (s *StaticSource) Catalog() Catalog {
	return s.catalog
}

func (c Catalog) DateString() string {
	return c.StartTime.Format("January 2, 2006")
}

func (c Catalog) TimeString() string {
	return c.StartTime.Format("3:04 PM") + " - " + c.EndTime.Format("3:04 PM")
}

func (c Catalog) Validate() error {
	if c.Name == "" {
		return NewInvalidCatalogError("Name must be set")
	}
	if c.Fee == nil || !c.Fee.IsPositive() {
		return NewInvalidCatalogError("Fee must be a positive amount")
	}
	if c.StartTime.IsZero() || !c.EndTime.After(c.StartTime) {
		return NewInvalidCatalogError("EndTime must be after StartTime")
	}
	if c.EventLocation.Name == "" {
		return NewInvalidCatalogError("Venue name must be set")
	}

	return nil
}

// DefaultCatalog is the catalog used when no catalog file is configured.
func DefaultCatalog() Catalog {
	ist := time.FixedZone("IST", 5*60*60+30*60)

	return Catalog{
		Name:      "Class of 2022 Reunion",
		StartTime: time.Date(2025, time.June, 29, 17, 0, 0, 0, ist),
		EndTime:   time.Date(2025, time.June, 29, 22, 0, 0, 0, ist),
		EventLocation: Location{
			Name: "Y ZONE",
			LocAddress: Address{
				City:    "Kalyan Pandam",
				State:   "Maharashtra",
				Country: "India",
			},
		},
		Fee:            money.New(150000, money.INR),
		WhatsAppLink:   "https://chat.whatsapp.com/YOUR_GROUP_LINK_HERE",
		SupportContact: "reunion2022@example.com",
		FoodMenu: []FoodItem{
			{ID: "1", Name: "Paneer Butter Masala", Veg: true, Description: "Rich and creamy paneer curry", ImageURL: "https://images.pexels.com/photos/2474661/pexels-photo-2474661.jpeg"},
			{ID: "2", Name: "Chicken Biryani", Veg: false, Description: "Aromatic basmati rice with tender chicken", ImageURL: "https://images.pexels.com/photos/2474663/pexels-photo-2474663.jpeg"},
			{ID: "3", Name: "Dal Makhani", Veg: true, Description: "Slow-cooked black lentils in rich gravy", ImageURL: "https://images.pexels.com/photos/2474664/pexels-photo-2474664.jpeg"},
			{ID: "4", Name: "Mutton Curry", Veg: false, Description: "Spicy and tender mutton curry", ImageURL: "https://images.pexels.com/photos/2474665/pexels-photo-2474665.jpeg"},
			{ID: "5", Name: "Rajma Rice", Veg: true, Description: "Red kidney beans with steamed rice", ImageURL: "https://images.pexels.com/photos/2474666/pexels-photo-2474666.jpeg"},
			{ID: "6", Name: "Fish Fry", Veg: false, Description: "Crispy fried fish with spices", ImageURL: "https://images.pexels.com/photos/2474667/pexels-photo-2474667.jpeg"},
		},
		Timeline: []TimelineEntry{
			{Time: "5:00 PM", Activity: "Welcome & Registration"},
			{Time: "5:30 PM", Activity: "Photo Session & Networking"},
			{Time: "6:30 PM", Activity: "Memory Lane Presentation"},
			{Time: "7:30 PM", Activity: "Dinner Service"},
			{Time: "8:30 PM", Activity: "Games & Entertainment"},
			{Time: "9:30 PM", Activity: "Prize Distribution & Farewell"},
		},
	}
}
