package model

import "time"

// Supplier represents a vendor that can quote against purchase request line items.
// Names are not unique; historical POs keep a denormalized copy of the name.
type Supplier struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(200);not null" json:"name"`
	Contact   string    `gorm:"type:varchar(200)" json:"contact"`
	Email     string    `gorm:"type:varchar(200)" json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Item is a loose catalog entry carrying a default unit price. Line items copy
// name and price at creation time and keep no foreign key back to the catalog.
type Item struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(200);not null" json:"name"`
	UnitPrice float64   `gorm:"type:decimal(12,2);default:0" json:"unit_price"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
