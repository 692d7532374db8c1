package types

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrDonorNotFound    = errors.New("donor not found")
	ErrDocumentNotFound = errors.New("document not found")
)

// BloodType is one of the eight ABO/Rh groups.
type BloodType string

const (
	BloodTypeAPos  BloodType = "A+"
	BloodTypeANeg  BloodType = "A-"
	BloodTypeBPos  BloodType = "B+"
	BloodTypeBNeg  BloodType = "B-"
	BloodTypeABPos BloodType = "AB+"
	BloodTypeABNeg BloodType = "AB-"
	BloodTypeOPos  BloodType = "O+"
	BloodTypeONeg  BloodType = "O-"
)

var BloodTypes = []BloodType{
	BloodTypeAPos, BloodTypeANeg,
	BloodTypeBPos, BloodTypeBNeg,
	BloodTypeABPos, BloodTypeABNeg,
	BloodTypeOPos, BloodTypeONeg,
}

func (b BloodType) Valid() bool {
	for _, t := range BloodTypes {
		if b == t {
			return true
		}
	}
	return false
}

// ParseBloodType normalizes user input such as "ab+" or " O- ".
func ParseBloodType(s string) (BloodType, bool) {
	b := BloodType(strings.ToUpper(strings.TrimSpace(s)))
	return b, b.Valid()
}

type Availability string

const (
	AvailabilityNow         Availability = "now"
	AvailabilityToday       Availability = "today"
	AvailabilityWeek        Availability = "week"
	AvailabilityUnavailable Availability = "unavailable"
)

func (a Availability) Valid() bool {
	switch a {
	case AvailabilityNow, AvailabilityToday, AvailabilityWeek, AvailabilityUnavailable:
		return true
	}
	return false
}

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

func (v VerificationStatus) Valid() bool {
	switch v {
	case VerificationPending, VerificationVerified, VerificationRejected:
		return true
	}
	return false
}

type Donor struct {
	ID                 string             `db:"id" json:"id"`
	UserID             *string            `db:"user_id" json:"userId,omitempty"`
	FullName           string             `db:"full_name" json:"fullName"`
	Phone              *string            `db:"phone" json:"phone,omitempty"`
	City               *string            `db:"city" json:"city,omitempty"`
	BloodType          BloodType          `db:"blood_type" json:"bloodType"`
	Latitude           *float64           `db:"latitude" json:"latitude,omitempty"`
	Longitude          *float64           `db:"longitude" json:"longitude,omitempty"`
	Availability       Availability       `db:"availability" json:"availability"`
	VerificationStatus VerificationStatus `db:"verification_status" json:"verificationStatus"`
	LastDonationDate   *time.Time         `db:"last_donation_date" json:"lastDonationDate,omitempty"`
	CreatedAt          time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updatedAt"`
}

// Location returns the donor's shared position, if both coordinates are present.
func (d *Donor) Location() (Location, bool) {
	if d.Latitude == nil || d.Longitude == nil {
		return Location{}, false
	}
	return Location{Lat: *d.Latitude, Lng: *d.Longitude}, true
}

// Public strips contact details before a donor is shown to other users.
func (d *Donor) Public() *Donor {
	c := *d
	c.UserID = nil
	c.Phone = nil
	return &c
}

type DonorForm struct {
	FullName         string  `form:"full_name" json:"fullName"`
	Phone            string  `form:"phone" json:"phone"`
	City             string  `form:"city" json:"city"`
	BloodType        string  `form:"blood_type" json:"bloodType"`
	Availability     string  `form:"availability" json:"availability"`
	LastDonationDate *string `form:"last_donation_date" json:"lastDonationDate"`
}

type DonorLocationForm struct {
	Latitude  *float64 `form:"lat" json:"lat"`
	Longitude *float64 `form:"lng" json:"lng"`
}

type DonorDocument struct {
	ID            string    `db:"id" json:"id"`
	DonorID       string    `db:"donor_id" json:"donorId"`
	DocumentType  string    `db:"document_type" json:"documentType"`
	FileName      string    `db:"file_name" json:"fileName"`
	FileSizeBytes int64     `db:"file_size_bytes" json:"fileSizeBytes"`
	MimeType      string    `db:"mime_type" json:"mimeType"`
	StorageKey    string    `db:"storage_key" json:"storageKey"`
	UploadedAt    time.Time `db:"uploaded_at" json:"uploadedAt"`
}

// Document type constants
const (
	DocTypeNationalID    = "national_id"
	DocTypeDonorCard     = "donor_card"
	DocTypeMedicalReport = "medical_report"
	DocTypeOther         = "other"
)

func ValidDocumentType(t string) bool {
	switch t {
	case DocTypeNationalID, DocTypeDonorCard, DocTypeMedicalReport, DocTypeOther:
		return true
	}
	return false
}
