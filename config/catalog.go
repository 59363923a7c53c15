package config

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/classof2022/reunion-registration/events"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type catalogFile struct {
	Name string `mapstructure:"name"`
	// RFC 3339, quoted in YAML.
	Start          string         `mapstructure:"start"`
	End            string         `mapstructure:"end"`
	Venue          venueFile      `mapstructure:"venue"`
	Fee            feeFile        `mapstructure:"fee"`
	WhatsAppLink   string         `mapstructure:"whatsapp_link"`
	SupportContact string         `mapstructure:"support_contact"`
	Menu           []menuItemFile `mapstructure:"menu"`
	Timeline       []timelineFile `mapstructure:"timeline"`
}

type venueFile struct {
	Name       string `mapstructure:"name"`
	Street     string `mapstructure:"street"`
	City       string `mapstructure:"city"`
	State      string `mapstructure:"state"`
	PostalCode string `mapstructure:"postal_code"`
	Country    string `mapstructure:"country"`
}

type feeFile struct {
	// Minor units, e.g. paise.
	Amount   int64  `mapstructure:"amount"`
	Currency string `mapstructure:"currency"`
}

type menuItemFile struct {
	ID          string `mapstructure:"id"`
	Name        string `mapstructure:"name"`
	ImageURL    string `mapstructure:"image_url"`
	Veg         bool   `mapstructure:"veg"`
	Description string `mapstructure:"description"`
}

type timelineFile struct {
	Time     string `mapstructure:"time"`
	Activity string `mapstructure:"activity"`
}

func (f catalogFile) toCatalog() (events.Catalog, error) {
	start, err := time.Parse(time.RFC3339, f.Start)
	if err != nil {
		return events.Catalog{}, events.NewFailedToLoadCatalogError("start is not an RFC 3339 time", err)
	}
	end, err := time.Parse(time.RFC3339, f.End)
	if err != nil {
		return events.Catalog{}, events.NewFailedToLoadCatalogError("end is not an RFC 3339 time", err)
	}
	if money.GetCurrency(f.Fee.Currency) == nil {
		return events.Catalog{}, events.NewInvalidCatalogError(fmt.Sprintf("Unknown fee currency %q", f.Fee.Currency))
	}

	catalog := events.Catalog{
		Name:      f.Name,
		StartTime: start,
		EndTime:   end,
		EventLocation: events.Location{
			Name: f.Venue.Name,
			LocAddress: events.Address{
				Street:     f.Venue.Street,
				City:       f.Venue.City,
				State:      f.Venue.State,
				PostalCode: f.Venue.PostalCode,
				Country:    f.Venue.Country,
			},
		},
		Fee:            money.New(f.Fee.Amount, f.Fee.Currency),
		WhatsAppLink:   f.WhatsAppLink,
		SupportContact: f.SupportContact,
	}
	for _, item := range f.Menu {
		catalog.FoodMenu = append(catalog.FoodMenu, events.FoodItem{
			ID:          item.ID,
			Name:        item.Name,
			ImageURL:    item.ImageURL,
			Veg:         item.Veg,
			Description: item.Description,
		})
	}
	for _, entry := range f.Timeline {
		catalog.Timeline = append(catalog.Timeline, events.TimelineEntry{Time: entry.Time, Activity: entry.Activity})
	}

	if err := catalog.Validate(); err != nil {
		return events.Catalog{}, err
	}
	return catalog, nil
}

func readCatalog(v *viper.Viper) (events.Catalog, error) {
	if err := v.ReadInConfig(); err != nil {
		return events.Catalog{}, events.NewFailedToLoadCatalogError(fmt.Sprintf("Failed to read catalog file %q", v.ConfigFileUsed()), err)
	}

	var f catalogFile
	if err := v.Unmarshal(&f); err != nil {
		return events.Catalog{}, events.NewFailedToLoadCatalogError("Failed to decode catalog file", err)
	}
	return f.toCatalog()
}

func LoadCatalog(path string) (events.Catalog, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return readCatalog(v)
}

var _ events.Source = (*CatalogWatcher)(nil)

// CatalogWatcher serves the catalog from a YAML file and reloads it when the
// file changes. A bad edit is logged and the previous catalog stays live.
type CatalogWatcher struct {
	v       *viper.Viper
	logger  *slog.Logger
	current atomic.Pointer[events.Catalog]
	reloads atomic.Int64
}

func WatchCatalog(path string, logger *slog.Logger) (*CatalogWatcher, error) {
	v := viper.New()
	v.SetConfigFile(path)

	catalog, err := readCatalog(v)
	if err != nil {
		return nil, err
	}

	w := &CatalogWatcher{v: v, logger: logger}
	w.current.Store(&catalog)

	v.OnConfigChange(w.onChange)
	v.WatchConfig()

	return w, nil
}

func (w *CatalogWatcher) onChange(e fsnotify.Event) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}

	catalog, err := readCatalog(w.v)
	if err != nil {
		w.logger.Error("Failed to reload catalog, keeping the previous one",
			slog.String("file", e.Name),
			slog.String("error", err.Error()))
		return
	}

	w.current.Store(&catalog)
	w.reloads.Add(1)
	w.logger.Info("Reloaded catalog", slog.String("file", e.Name), slog.String("name", catalog.Name))
}

func (w *CatalogWatcher) Catalog() events.Catalog {
	return *w.current.Load()
}
