package locations

// Location kinds. Stock is tracked identically for both; the kind decides
// which side of a transfer a location may sit on.
const (
	KindBranch    = "branch"
	KindWarehouse = "warehouse"
)

// Location is a stock-holding site, either a retail branch or a warehouse.
type Location struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	IsActive bool   `json:"is_active"`
}
