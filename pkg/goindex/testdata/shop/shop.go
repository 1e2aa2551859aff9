// Package shop is a fixture for the type index tests.
package shop

import "time"

// Status of an order.
type Status string

const (
	StatusPending Status = "pending"
	StatusShipped Status = "shipped"
	// StatusSent is an alias of StatusShipped
	StatusSent Status = "shipped"
)

type Priority int

const (
	PriorityLow Priority = iota
	PriorityHigh
)

// Cents carries no constants and encodes as a plain integer.
type Cents int64

// Order is a customer order.
//
//schema:name PurchaseOrder
type Order struct {
	ID string `json:"id" validate:"required"`
	// Lines of the order.
	Lines     []Line              `json:"lines" validate:"min=1"`
	Status    Status              `json:"status"`
	Priority  Priority            `json:"priority,omitempty"`
	Total     Cents               `json:"total"`
	Customer  *Customer           `json:"customer"`
	Labels    Labels              `json:"labels"`
	Tags      map[string]struct{} `json:"tags"`
	CreatedAt time.Time           `json:"createdAt"`
	Scans     [][]byte            `json:"scans"`
	Grid      [3][3]int           `json:"grid"`
	Meta      any                 `json:"meta"`
	Parent    *Order              `json:"parent,omitempty"`
	Audit
	internal string
}

// Audit is embedded in audited types.
type Audit struct {
	UpdatedBy string `json:"updatedBy"` // last editor
}

type Line struct {
	SKU      string  `json:"sku"`
	Quantity int     `json:"quantity" validate:"gte=1"`
	Price    float64 `json:"price" validate:"gt=0"`
}

//schema:ignoreProperties password
type Customer struct {
	Name     string `json:"name" validate:"required,notblank"`
	Password string `json:"password"`
	Secret   Secret `json:"secret"`
}

// Secret never leaves the service.
//
//schema:ignore
type Secret struct {
	Value string
}

type Labels map[string]string

type Lines []Line

type Page[T any] struct {
	Items []T     `json:"items"`
	Next  *string `json:"next,omitempty"`
}

type Dict[V any] map[string]V

type Catalog struct {
	Products Page[Product] `json:"products"`
	Prices   Dict[float64] `json:"prices"`
}

type Product struct {
	Name string `json:"name"`
}

type Handler func(Order) error

type unexported struct{}
