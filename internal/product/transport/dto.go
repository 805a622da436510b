package transport

// Price is a pointer so a missing field is distinguishable from a zero price.
type CreateProductRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       *float64 `json:"price"`
}
