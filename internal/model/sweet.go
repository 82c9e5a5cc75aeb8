package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category is the fixed set of sweet categories
type Category string

const (
	CategoryChocolate Category = "chocolate"
	CategoryCandy     Category = "candy"
	CategoryCookie    Category = "cookie"
	CategoryCake      Category = "cake"
	CategoryPastry    Category = "pastry"
	CategoryOther     Category = "other"
)

// Categories lists every valid category in display order
var Categories = []Category{
	CategoryChocolate,
	CategoryCandy,
	CategoryCookie,
	CategoryCake,
	CategoryPastry,
	CategoryOther,
}

// MaxPriceCents bounds a unit price so that a full cart total fits in int64
const MaxPriceCents int64 = 10_000_000_000

// Sweet represents a catalog item. Quantity is set on create and may be
// overwritten by an admin edit; purchases and restocks move it atomically
// through the inventory primitives.
type Sweet struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string    `json:"name" gorm:"type:varchar(120);uniqueIndex;not null"`
	Category    Category  `json:"category" gorm:"type:varchar(20);index;not null"`
	PriceCents  int64     `json:"price_cents" gorm:"not null;check:chk_sweets_price_non_negative,price_cents >= 0"`
	Quantity    int       `json:"quantity" gorm:"not null;default:0;check:chk_sweets_quantity_non_negative,quantity >= 0"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	ImageURL    string    `json:"image_url,omitempty" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BeforeCreate assigns the id when the caller did not
func (s *Sweet) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
