package model

import "time"

// Balance is the derived remaining-amount record per PR, one row keyed by
// pr_id. It is recomputed by the reconciliation engine and never authored
// directly: balance_amount = pr_total_amount - po_total_amount. ActivityName
// and UserID are frozen at creation time and not refreshed on later upserts.
type Balance struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	PRID          uint      `gorm:"uniqueIndex;not null" json:"pr_id"`
	ActivityName  string    `gorm:"type:varchar(255);not null" json:"activity_name"` // copy of PR.Title at creation
	PRTotalAmount float64   `gorm:"type:decimal(14,2);default:0" json:"pr_total_amount"`
	POTotalAmount float64   `gorm:"type:decimal(14,2);default:0" json:"po_total_amount"`
	BalanceAmount float64   `gorm:"type:decimal(14,2);default:0" json:"balance_amount"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
