package model

import "time"

// OrderStatusHistory is an append-only ledger entry recording one status
// transition. Rows are never updated or deleted after insertion.
type OrderStatusHistory struct {
	ID              int64       `gorm:"primaryKey;autoIncrement"`
	OrderID         int64       `gorm:"index;not null"`
	OldStatus       OrderStatus `gorm:"size:16;not null"`
	NewStatus       OrderStatus `gorm:"size:16;not null"`
	ChangedByUserID int64       `gorm:"not null"`
	ChangedAt       time.Time   `gorm:"index;not null"`
	Notes           string      `gorm:"type:text"`
}

// OrderAssignmentHistory is an append-only ledger entry recording one
// assignment. The currently effective assignment is the row with a null
// UnassignedAt; it is closed (UnassignedAt set) when superseded.
type OrderAssignmentHistory struct {
	ID                   int64 `gorm:"primaryKey;autoIncrement"`
	OrderID              int64 `gorm:"index;not null"`
	AssignedDepartmentID int64 `gorm:"not null"`
	AssignedToUserID     *int64
	AssignedByUserID     int64      `gorm:"not null"`
	AssignedAt           time.Time  `gorm:"not null"`
	UnassignedAt         *time.Time `gorm:"index"`
}

// OrderComment is a free-text note attached to an order.
type OrderComment struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	OrderID   int64     `gorm:"index;not null"`
	UserID    int64     `gorm:"not null"`
	Comment   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// OrderAttachment references a stored file attached to an order. The file
// contents live in an external attachment store; only the pointer is kept.
type OrderAttachment struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	OrderID    int64  `gorm:"index;not null"`
	UserID     int64  `gorm:"not null"`
	FileName   string `gorm:"size:256;not null"`
	StorageKey string `gorm:"size:512;not null"`
	SizeBytes  int64
	CreatedAt  time.Time `gorm:"not null"`
}
