package repositories

import (
	"context"
	"fmt"

	"redgen/migrator"
	"redgen/models"
	"redgen/store"
)

// ListingRepository reads and writes the two persisted keys. Everything read, whether by
// Load or by a change notification, passes through the migrator first.
type ListingRepository struct {
	st store.Store
}

func NewListingRepository(st store.Store) *ListingRepository {
	return &ListingRepository{st: st}
}

// State is the whole persisted state after migration.
type State struct {
	Listings []models.Listing
	Settings models.AppSettings
}

// Load reads both keys in one Get. Missing keys migrate to empty values.
func (r *ListingRepository) Load(ctx context.Context) (State, error) {
	vals, err := r.st.Get(ctx, store.KeyListings, store.KeySettings)
	if err != nil {
		return State{}, fmt.Errorf("load state: %w", err)
	}
	return State{
		Listings: migrator.MigrateListings(vals[store.KeyListings]),
		Settings: migrator.MigrateSettings(vals[store.KeySettings]),
	}, nil
}

// SaveListings writes the full next collection in a single Set.
func (r *ListingRepository) SaveListings(ctx context.Context, listings []models.Listing) error {
	if listings == nil {
		listings = []models.Listing{}
	}
	raw, err := store.Marshal(listings)
	if err != nil {
		return err
	}
	if err := r.st.Set(ctx, store.Values{store.KeyListings: raw}); err != nil {
		return fmt.Errorf("save listings: %w", err)
	}
	return nil
}

func (r *ListingRepository) SaveSettings(ctx context.Context, s models.AppSettings) error {
	raw, err := store.Marshal(s)
	if err != nil {
		return err
	}
	if err := r.st.Set(ctx, store.Values{store.KeySettings: raw}); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// ListingsChange is a migrated notification for the listings key.
type ListingsChange struct {
	Listings []models.Listing
}

// SettingsChange is a migrated notification for the settings key.
type SettingsChange struct {
	Settings models.AppSettings
}

// Watcher receives migrated changes. Unknown keys are ignored.
type Watcher struct {
	OnListings func(ListingsChange)
	OnSettings func(SettingsChange)
}

// Watch subscribes w to store changes and returns the unsubscribe func.
func (r *ListingRepository) Watch(ctx context.Context, w Watcher) (func(), error) {
	return r.st.OnChange(ctx, func(c store.Change) {
		switch c.Key {
		case store.KeyListings:
			if w.OnListings != nil {
				w.OnListings(ListingsChange{Listings: migrator.MigrateListings(c.New)})
			}
		case store.KeySettings:
			if w.OnSettings != nil {
				w.OnSettings(SettingsChange{Settings: migrator.MigrateSettings(c.New)})
			}
		}
	})
}
