package model

import "time"

// PRStatus enum constants
const (
	PRStatusDraft    = "draft"
	PRStatusPending  = "pending"
	PRStatusApproved = "approved"
	PRStatusRejected = "rejected"
)

// PurchaseRequest is the root of the procurement workflow. Status only moves
// through the state machine (draft -> pending -> approved/rejected); Total is
// a cache of the line-item sum, refreshed on every edit and reconciliation.
type PurchaseRequest struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Title          string          `gorm:"type:varchar(200);not null" json:"title"`
	Description    string          `gorm:"type:text" json:"description"`
	CreatedBy      uint            `gorm:"not null;index" json:"created_by"`
	Creator        *User           `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	Status         string          `gorm:"type:varchar(30);not null;default:'draft';index" json:"status"` // draft, pending, approved, rejected
	Total          float64         `gorm:"type:decimal(14,2);default:0" json:"total"`
	LineItems      []LineItem      `gorm:"foreignKey:PRID" json:"line_items,omitempty"`
	PurchaseOrders []PurchaseOrder `gorm:"foreignKey:PRID" json:"purchase_orders,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// LineItem is one requested good or service within a PR. Line items are
// replaced wholesale when the PR is edited; they have no meaning on their own.
type LineItem struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	PRID      uint    `gorm:"not null;index" json:"pr_id"`
	ItemName  string  `gorm:"type:varchar(200);not null" json:"item_name"`
	Quantity  int     `gorm:"default:1" json:"quantity"`
	Unit      string  `gorm:"type:varchar(50);default:'pcs'" json:"unit"`
	UnitPrice float64 `gorm:"type:decimal(12,2);default:0" json:"unit_price"`
}

// Subtotal is the derived line amount, quantity x unit price.
func (li LineItem) Subtotal() float64 {
	return float64(li.Quantity) * li.UnitPrice
}
