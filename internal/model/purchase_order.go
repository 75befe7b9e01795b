package model

import "time"

// PurchaseOrder commits one PR line item to a supplier at a quoted unit price.
// POs exist only for approved PRs. SupplierName is the denormalized display
// name; SupplierID links the supplier record when the name matched one at
// creation time, so renaming or deleting a supplier never rewrites past POs.
type PurchaseOrder struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	PRID           uint      `gorm:"not null;index" json:"pr_id"`
	LineItemID     uint      `gorm:"not null;index" json:"line_item_id"`
	LineItem       *LineItem `gorm:"foreignKey:LineItemID" json:"line_item,omitempty"`
	SupplierID     *uint     `gorm:"index" json:"supplier_id"`
	SupplierName   string    `gorm:"type:varchar(120);not null" json:"supplier_name"`
	BrandName      string    `gorm:"type:varchar(120)" json:"brand_name"`
	QuotationPrice float64   `gorm:"type:decimal(12,2);not null" json:"quotation_price"` // price per unit quoted by the supplier
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
