package types

import (
	"errors"
	"time"
)

var ErrNotificationNotFound = errors.New("notification not found")

type Notification struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"userId"`
	DonorID        string    `db:"donor_id" json:"donorId"`
	BloodRequestID string    `db:"blood_request_id" json:"bloodRequestId"`
	Title          string    `db:"title" json:"title"`
	Message        string    `db:"message" json:"message"`
	IsRead         bool      `db:"is_read" json:"isRead"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// DonorNotifiedEvent is published for every donor reached by a broadcast.
type DonorNotifiedEvent struct {
	NotificationID string    `json:"notificationId"`
	BloodRequestID string    `json:"bloodRequestId"`
	DonorID        string    `json:"donorId"`
	UserID         string    `json:"userId"`
	BloodType      BloodType `json:"bloodType"`
	Urgency        Urgency   `json:"urgency"`
	DistanceKm     *float64  `json:"distanceKm,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

type BloodRequestEvent struct {
	BloodRequestID string             `json:"bloodRequestId"`
	Status         BloodRequestStatus `json:"status"`
	Timestamp      time.Time          `json:"timestamp"`
}
