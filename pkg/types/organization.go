package types

import (
	"errors"
	"time"
)

var ErrOrganizationNotFound = errors.New("organization not found")

type OrganizationType string

const (
	OrganizationHospital  OrganizationType = "hospital"
	OrganizationBloodBank OrganizationType = "blood_bank"
)

func (t OrganizationType) Valid() bool {
	return t == OrganizationHospital || t == OrganizationBloodBank
}

// Organization is a hospital or blood bank with its own portal.
type Organization struct {
	ID                 string             `db:"id" json:"id"`
	OwnerUserID        string             `db:"owner_user_id" json:"ownerUserId"`
	Name               string             `db:"name" json:"name"`
	Type               OrganizationType   `db:"type" json:"type"`
	Phone              *string            `db:"phone" json:"phone,omitempty"`
	Address            *string            `db:"address" json:"address,omitempty"`
	City               *string            `db:"city" json:"city,omitempty"`
	Latitude           *float64           `db:"latitude" json:"latitude,omitempty"`
	Longitude          *float64           `db:"longitude" json:"longitude,omitempty"`
	VerificationStatus VerificationStatus `db:"verification_status" json:"verificationStatus"`
	CreatedAt          time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updatedAt"`
}

type OrganizationForm struct {
	Name      string   `form:"name" json:"name"`
	Type      string   `form:"type" json:"type"`
	Phone     string   `form:"phone" json:"phone"`
	Address   string   `form:"address" json:"address"`
	City      string   `form:"city" json:"city"`
	Latitude  *float64 `form:"lat" json:"lat"`
	Longitude *float64 `form:"lng" json:"lng"`
}
