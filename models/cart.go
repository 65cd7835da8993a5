package models

// CartItem is a single cart line: the product reference, the quantity, and
// the unit price captured at the time the item was added.
type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	AddedAt  string  `json:"addedAt,omitempty"`
}

// Cart mirrors the server-side cart resource. Every mutating cart endpoint
// returns the full updated cart, so a Cart value is always a complete
// server-authoritative snapshot, never a locally patched one.
type Cart struct {
	ID          string     `json:"_id,omitempty"`
	UserID      string     `json:"userId,omitempty"`
	Items       []CartItem `json:"items"`
	TotalItems  int        `json:"totalItems"`
	TotalAmount float64    `json:"totalAmount"`
	CreatedAt   string     `json:"createdAt,omitempty"`
	UpdatedAt   string     `json:"updatedAt,omitempty"`
}
