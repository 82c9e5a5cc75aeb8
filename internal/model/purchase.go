package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PurchaseStatus tracks fulfilment of a purchase
type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusPaid      PurchaseStatus = "paid"
	PurchaseStatusShipped   PurchaseStatus = "shipped"
	PurchaseStatusDelivered PurchaseStatus = "delivered"
	PurchaseStatusCancelled PurchaseStatus = "cancelled"
)

// Purchase is one atomic stock-decrementing transaction, single or multi-item.
// It is never updated after creation.
type Purchase struct {
	ID            uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID      `json:"user_id" gorm:"type:uuid;index;not null"`
	CustomerName  string         `json:"customer_name" gorm:"type:varchar(80)"`
	Address       string         `json:"address,omitempty" gorm:"type:text"`
	ContactNumber string         `json:"contact_number,omitempty" gorm:"type:varchar(32)"`
	Items         []PurchaseItem `json:"items" gorm:"foreignKey:PurchaseID;constraint:OnDelete:CASCADE"`
	TotalCents    int64          `json:"total_cents" gorm:"not null"`
	Status        PurchaseStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending'"`
	CreatedAt     time.Time      `json:"created_at" gorm:"index"`

	// Purchaser is only loaded for admin listings
	Purchaser *Profile `json:"purchaser,omitempty" gorm:"foreignKey:UserID;references:ID"`
}

// BeforeCreate assigns the id when the caller did not
func (p *Purchase) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PurchaseItem is a line of a purchase. Name, image and unit price are
// snapshots taken inside the purchase transaction.
type PurchaseItem struct {
	ID             uint      `json:"-" gorm:"primaryKey"`
	PurchaseID     uuid.UUID `json:"-" gorm:"type:uuid;index;not null"`
	SweetID        uuid.UUID `json:"sweet_id" gorm:"type:uuid;index;not null"`
	Name           string    `json:"name" gorm:"type:varchar(120);not null"`
	ImageURL       string    `json:"image_url,omitempty" gorm:"type:text"`
	Quantity       int       `json:"quantity" gorm:"not null"`
	UnitPriceCents int64     `json:"unit_price_cents" gorm:"not null"`
	LineTotalCents int64     `json:"line_total_cents" gorm:"not null"`
}

// UnitCount sums the quantity of every line
func (p *Purchase) UnitCount() int {
	total := 0
	for _, item := range p.Items {
		total += item.Quantity
	}
	return total
}
