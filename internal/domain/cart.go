package domain

// LineKey identifies a cart line item
type LineKey struct {
	ProductID string
	Size      float64
	Color     string
}

// CartItem is a product variant held in the cart
type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
	Size     float64 `json:"size"`
	Color    string  `json:"color"`
}

// Key returns the (product id, size, color) identity of the item
func (i CartItem) Key() LineKey {
	return LineKey{ProductID: i.Product.ID, Size: i.Size, Color: i.Color}
}

// Theme is the persisted color scheme preference
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)
