package validation

import (
	"strings"

	"sweetshop/internal/model"
)

// RegisterInput is the body of POST /auth/register
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,min=2,max=80"`
}

func (in *RegisterInput) Normalize() {
	in.Email = NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
}

// LoginInput is the body of POST /auth/login
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (in *LoginInput) Normalize() {
	in.Email = NormalizeEmail(in.Email)
}

// SweetInput is the body of POST /sweets and PUT /sweets/:id.
// Price and quantity are pointers: an omitted value differs from zero.
type SweetInput struct {
	Name        string `json:"name" validate:"required,min=1,max=120"`
	Category    string `json:"category" validate:"required,category"`
	PriceCents  *int64 `json:"price_cents" validate:"required,min=0,max=10000000000"`
	Quantity    *int   `json:"quantity" validate:"required,min=0,max=1000000"`
	Description string `json:"description" validate:"max=2000"`
	ImageURL    string `json:"image_url" validate:"omitempty,url,max=2048"`
}

func (in *SweetInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.ToLower(strings.TrimSpace(in.Category))
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
}

// Sweet converts a validated input into a model value
func (in *SweetInput) Sweet() model.Sweet {
	s := model.Sweet{
		Name:        in.Name,
		Category:    model.Category(in.Category),
		Description: in.Description,
		ImageURL:    in.ImageURL,
	}
	if in.PriceCents != nil {
		s.PriceCents = *in.PriceCents
	}
	if in.Quantity != nil {
		s.Quantity = *in.Quantity
	}
	return s
}

// QuantityInput is the body of the purchase and restock endpoints
type QuantityInput struct {
	Quantity int `json:"quantity" validate:"min=1,max=10000"`
}

// CheckoutItemInput is one cart line. Name, image and unit price sent by
// clients are accepted for compatibility and ignored.
type CheckoutItemInput struct {
	SweetID  string `json:"sweet_id" validate:"required,uuid"`
	Quantity int    `json:"quantity" validate:"min=1,max=10000"`
}

// CheckoutInput is the body of POST /checkout
type CheckoutInput struct {
	CustomerName    string              `json:"customer_name" validate:"max=80"`
	Address         string              `json:"address" validate:"max=500"`
	ContactNumber   string              `json:"contact_number" validate:"max=32"`
	Items           []CheckoutItemInput `json:"items" validate:"required,min=1,max=50,dive"`
	TotalPriceCents *int64              `json:"total_price_cents" validate:"omitempty,min=0"`
}

func (in *CheckoutInput) Normalize() {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.Address = strings.TrimSpace(in.Address)
	in.ContactNumber = strings.TrimSpace(in.ContactNumber)
	for i := range in.Items {
		in.Items[i].SweetID = strings.TrimSpace(in.Items[i].SweetID)
	}
}

// ProfileInput is the body of PUT /profile
type ProfileInput struct {
	Name    string `json:"name" validate:"required,min=2,max=80"`
	Phone   string `json:"phone_number" validate:"max=32"`
	Address string `json:"address" validate:"max=500"`
}

func (in *ProfileInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
}

// NormalizeEmail trims and lower-cases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
