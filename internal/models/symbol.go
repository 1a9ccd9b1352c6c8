package models

// Symbol is a tradable instrument with its current simulated price.
// Names are uppercase-normalized and unique within the registry.
type Symbol struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}
