package pagination

// Offset pagination for the inventory list and change log endpoints. The
// external contract is page/limit with a total count, so cursor encoding
// buys nothing here.

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 20
	// DefaultLogLimit is the standard page size for change log queries.
	DefaultLogLimit = 50
	// MaxLimit caps how many rows any page query can request.
	MaxLimit = 100
)

// Params holds offset pagination inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// Meta describes the page that was actually returned.
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

// NormalizePage clamps the requested page to 1 or higher.
func NormalizePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}

// NormalizeLimit enforces the provided default and the maximum limit.
func NormalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Normalize applies page and limit clamping in one step.
func Normalize(params Params, fallbackLimit int) Params {
	return Params{
		Page:  NormalizePage(params.Page),
		Limit: NormalizeLimit(params.Limit, fallbackLimit),
	}
}

// Offset converts normalized params into a row offset.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// MetaFor computes page metadata for a result set of total rows.
func MetaFor(params Params, total int64) Meta {
	pages := int(total) / params.Limit
	if int(total)%params.Limit != 0 {
		pages++
	}
	return Meta{
		Total:      total,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: pages,
	}
}
