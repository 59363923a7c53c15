package events

import (
	"net/url"
	"strings"
)

type Location struct {
	Name       string
	LocAddress Address
}

type Address struct {
	Street     string
	City       string
	State      string
	PostalCode string
	Country    string
}

// String renders the venue the way it is printed on tickets, e.g. "Y ZONE, Kalyan Pandam".
func (l Location) String() string {
	if l.LocAddress.City == "" {
		return l.Name
	}
	return l.Name + ", " + l.LocAddress.City
}

// Region is the short line under the venue on the landing page, e.g. "Kalyan, Maharashtra".
func (l Location) Region() string {
	city, _, _ := strings.Cut(l.LocAddress.City, " ")
	return joinNonEmpty(", ", city, l.LocAddress.State)
}

// MapsURL is a Google Maps search link for the full address.
func (l Location) MapsURL() string {
	a := l.LocAddress
	query := joinNonEmpty(", ", l.Name, a.Street, a.City, a.State, a.PostalCode, a.Country)
	return "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(query)
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
