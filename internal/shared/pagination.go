package shared

const (
	// DefaultPageLimit is used when a listing does not ask for a size.
	DefaultPageLimit = 20
	// MaxPageLimit caps the page size of any listing.
	MaxPageLimit = 100
)

// Page holds limit/offset paging for listings.
type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
