package types

import (
	"errors"
	"time"
)

var ErrBloodRequestNotFound = errors.New("blood request not found")

type BloodRequestStatus string

const (
	BloodRequestOpen      BloodRequestStatus = "open"
	BloodRequestFulfilled BloodRequestStatus = "fulfilled"
	BloodRequestCancelled BloodRequestStatus = "cancelled"
)

type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyHigh     Urgency = "high"
	UrgencyNormal   Urgency = "normal"
)

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyCritical, UrgencyHigh, UrgencyNormal:
		return true
	}
	return false
}

type BloodRequest struct {
	ID             string             `db:"id" json:"id"`
	RequesterID    string             `db:"requester_id" json:"requesterId"`
	OrganizationID *string            `db:"organization_id" json:"organizationId,omitempty"`
	PatientName    string             `db:"patient_name" json:"patientName"`
	BloodType      BloodType          `db:"blood_type" json:"bloodType"`
	Units          int                `db:"units" json:"units"`
	Urgency        Urgency            `db:"urgency" json:"urgency"`
	HospitalName   string             `db:"hospital_name" json:"hospitalName"`
	ContactPhone   string             `db:"contact_phone" json:"contactPhone"`
	Latitude       *float64           `db:"latitude" json:"latitude,omitempty"`
	Longitude      *float64           `db:"longitude" json:"longitude,omitempty"`
	RadiusKm       *float64           `db:"radius_km" json:"radiusKm,omitempty"`
	Status         BloodRequestStatus `db:"status" json:"status"`
	NotifiedCount  int                `db:"notified_count" json:"notifiedCount"`
	FulfilledAt    *time.Time         `db:"fulfilled_at" json:"fulfilledAt,omitempty"`
	CancelledAt    *time.Time         `db:"cancelled_at" json:"cancelledAt,omitempty"`
	CreatedAt      time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time          `db:"updated_at" json:"updatedAt"`
}

func (r *BloodRequest) Location() (Location, bool) {
	if r.Latitude == nil || r.Longitude == nil {
		return Location{}, false
	}
	return Location{Lat: *r.Latitude, Lng: *r.Longitude}, true
}

type BloodRequestForm struct {
	OrganizationID string   `form:"organization_id" json:"organizationId"`
	PatientName    string   `form:"patient_name" json:"patientName"`
	BloodType      string   `form:"blood_type" json:"bloodType"`
	Units          int      `form:"units" json:"units"`
	Urgency        string   `form:"urgency" json:"urgency"`
	HospitalName   string   `form:"hospital_name" json:"hospitalName"`
	ContactPhone   string   `form:"contact_phone" json:"contactPhone"`
	Latitude       *float64 `form:"lat" json:"lat"`
	Longitude      *float64 `form:"lng" json:"lng"`
	RadiusKm       *float64 `form:"radius_km" json:"radiusKm"`
}
