package model

import "time"

// PushSubscription holds the information for a staff browser push
// subscription. Staff subscribe to departments; order events for a department
// fan out to its subscribers.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Departments []*Department `gorm:"many2many:subscription_department_mapping;"`
}
