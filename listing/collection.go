package listing

import (
	"redgen/models"
)

// Collection is the ordered set of listings, newest first.
type Collection []models.Listing

// Prepend returns a copy with l at the front.
func (c Collection) Prepend(l models.Listing) Collection {
	out := make(Collection, 0, len(c)+1)
	out = append(out, l)
	return append(out, c...)
}

// Find returns the listing with id.
func (c Collection) Find(id string) (models.Listing, bool) {
	for _, l := range c {
		if l.ID == id {
			return l, true
		}
	}
	return models.Listing{}, false
}

// Replace returns a copy with the listing of the same id swapped for l.
// ok is false when no such listing exists.
func (c Collection) Replace(l models.Listing) (Collection, bool) {
	out := make(Collection, len(c))
	copy(out, c)
	for i := range out {
		if out[i].ID == l.ID {
			out[i] = l
			return out, true
		}
	}
	return c, false
}

// Delete returns a copy without id. Nothing else references a listing.
func (c Collection) Delete(id string) (Collection, bool) {
	out := make(Collection, 0, len(c))
	found := false
	for _, l := range c {
		if l.ID == id {
			found = true
			continue
		}
		out = append(out, l)
	}
	if !found {
		return c, false
	}
	return out, true
}
