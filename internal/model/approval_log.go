package model

import "time"

// ApprovalAction enum constants
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// ApprovalLog is an append-only record of approval decisions. Rows are never
// updated or deleted.
type ApprovalLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PRID      uint      `gorm:"not null;index" json:"pr_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action    string    `gorm:"type:varchar(20);not null" json:"action"` // approve, reject
	Comment   string    `gorm:"type:text" json:"comment"`
	Timestamp time.Time `gorm:"autoCreateTime;index" json:"timestamp"`
}
