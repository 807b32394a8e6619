package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	SaleCompleted = "completed"
	SalePending   = "pending"
	SaleCancelled = "cancelled"
)

// SaleStatuses lists every status a sale may carry, in display order.
var SaleStatuses = []string{SaleCompleted, SalePending, SaleCancelled}

type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	Category    string             `bson:"category" json:"category"`
	Price       float64            `bson:"price" json:"price"`
	Stock       int                `bson:"stock" json:"stock"`
	Active      bool               `bson:"active" json:"active"`
	Image       ImageRef           `bson:"image,omitempty" json:"image_url"`
	CreatedBy   string             `bson:"created_by,omitempty" json:"-"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// CartLine is one product entry inside a cart. Price and name are captured when
// the line is first added.
type CartLine struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"product_id"`
	Name      string             `bson:"name" json:"name"`
	UnitPrice float64            `bson:"unit_price" json:"unit_price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Image     ImageRef           `bson:"image,omitempty" json:"image_url"`
}

type Cart struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UserID    string             `bson:"user_id" json:"user_id"`
	Lines     []CartLine         `bson:"lines" json:"lines"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// Line returns the index of the line holding productID, or -1.
func (c *Cart) Line(productID primitive.ObjectID) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

type SaleLine struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"product_id"`
	Name      string             `bson:"name" json:"name"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	UnitPrice float64            `bson:"unit_price" json:"unit_price"`
	Subtotal  float64            `bson:"subtotal" json:"subtotal"`
}

type Sale struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	InvoiceNumber string             `bson:"invoice_number" json:"invoice_number"`
	UserID        string             `bson:"user_id" json:"user_id"`
	UserName      string             `bson:"user_name" json:"user_name"`
	UserEmail     string             `bson:"user_email" json:"user_email"`
	Lines         []SaleLine         `bson:"lines" json:"lines"`
	Subtotal      float64            `bson:"subtotal" json:"subtotal"`
	TaxRate       float64            `bson:"tax_rate" json:"tax_rate"`
	Tax           float64            `bson:"tax" json:"tax"`
	Total         float64            `bson:"total" json:"total"`
	PaymentMethod string             `bson:"payment_method" json:"payment_method"`
	Status        string             `bson:"status" json:"status"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	Notes         string             `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Avatar is the document-store mirror of a relational user that carries the
// profile picture.
type Avatar struct {
	UserID    string    `bson:"user_id" json:"user_id"`
	Email     string    `bson:"email" json:"email"`
	Image     ImageRef  `bson:"avatar,omitempty" json:"-"`
	UpdatedAt time.Time `bson:"avatar_updated_at" json:"updated_at"`
}

type Availability struct {
	Status string `json:"status"` // IN_STOCK | LOW_STOCK | OUT_OF_STOCK
	Qty    int    `json:"qty"`
}
