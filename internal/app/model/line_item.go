package model

// Category classifies a storefront product.
type Category string

const (
	CategoryDevice    Category = "device"
	CategoryAccessory Category = "accessory"
)

// Valid reports whether the category is one of the known values.
func (c Category) Valid() bool {
	return c == CategoryDevice || c == CategoryAccessory
}

// LineItem is a single cart or wishlist entry. Prices are in minor
// currency units. While an item is present in the cart its quantity is
// always >= 1; a quantity that would drop below 1 removes the item.
type LineItem struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Subtitle  string   `json:"subtitle"`
	UnitPrice int64    `json:"unit_price"`
	Image     string   `json:"image"`
	Category  Category `json:"category"`
	Quantity  int      `json:"quantity"`
}

// MergeTuple is the shape sent to the remote merge endpoint: just
// enough for the server to reconcile quantities per item.
type MergeTuple struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	Quantity int      `json:"quantity"`
}

// MergeTuples projects cart items down to their merge representation.
func MergeTuples(items []LineItem) []MergeTuple {
	tuples := make([]MergeTuple, 0, len(items))
	for _, item := range items {
		tuples = append(tuples, MergeTuple{
			ID:       item.ID,
			Category: item.Category,
			Quantity: item.Quantity,
		})
	}
	return tuples
}
