// Package models contains the row shapes written to the Bloom backend tables.
// Column layouts are owned by the remote schema; these structs carry only the
// columns the seeder fills.
package models

import "time"

// Product represents a catalog item.
type Product struct {
	ID          string  `gorm:"primaryKey;type:uuid" json:"id"`
	Name        string  `gorm:"not null" json:"name"`
	Description string  `json:"description"`
	Price       float64 `gorm:"not null" json:"price"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"image_url"`
	Stock       int     `json:"stock"`
}

// TableName returns the remote table name.
func (Product) TableName() string { return "products" }

// User represents a shop customer or staff account.
type User struct {
	ID            string `gorm:"primaryKey;type:uuid" json:"id"`
	Email         string `gorm:"unique;not null" json:"email"`
	Name          string `json:"name"`
	PasswordHash  string `json:"password_hash"`
	IsAdmin       bool   `json:"is_admin"`
	EmailVerified bool   `json:"email_verified"`
}

// TableName returns the remote table name.
func (User) TableName() string { return "users" }

// Purchase records a user buying a product.
type Purchase struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string    `gorm:"type:uuid;not null" json:"user_id"`
	ProductID   string    `gorm:"type:uuid;not null" json:"product_id"`
	Quantity    int       `json:"quantity"`
	Total       float64   `json:"total"`
	Status      string    `json:"status"`
	PurchasedAt time.Time `json:"purchased_at"`
}

// TableName returns the remote table name.
func (Purchase) TableName() string { return "purchases" }

// Review is a user's rating of a product.
type Review struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	ProductID string    `gorm:"type:uuid;not null" json:"product_id"`
	UserID    string    `gorm:"type:uuid;not null" json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the remote table name.
func (Review) TableName() string { return "reviews" }

// Coupon is a discount code.
type Coupon struct {
	ID              string     `gorm:"primaryKey;type:uuid" json:"id"`
	Code            string     `gorm:"unique;not null" json:"code"`
	DiscountPercent int        `json:"discount_percent"`
	Active          bool       `json:"active"`
	ExpiresAt       *time.Time `json:"expires_at"`
}

// TableName returns the remote table name.
func (Coupon) TableName() string { return "coupons" }

// All returns one zero value per seeded table, parents first.
func All() []any {
	return []any{&Product{}, &User{}, &Purchase{}, &Review{}, &Coupon{}}
}
