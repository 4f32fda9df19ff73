package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BusinessStatus represents the status of a business listing
type BusinessStatus string

const (
	BusinessStatusActive   BusinessStatus = "active"
	BusinessStatusInactive BusinessStatus = "inactive"
)

// TrustLevel represents the directory trust tier of a business
type TrustLevel string

const (
	TrustLevelBasic          TrustLevel = "basic"
	TrustLevelVerified       TrustLevel = "verified"
	TrustLevelTrustedPartner TrustLevel = "trusted_partner"
)

// Business represents a reviewable subject in the directory.
// AverageRating and ReviewCount are derived columns owned by the stats
// projector; they reflect only the latest review per chain on active
// businesses and must never be patched incrementally.
type Business struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	Name              string          `json:"name" db:"name"`
	Type              string          `json:"type" db:"type"`
	Industry          *string         `json:"industry,omitempty" db:"industry"`
	Contact           *string         `json:"contact,omitempty" db:"contact"`
	Location          *string         `json:"location,omitempty" db:"location"`
	IsVerified        bool            `json:"is_verified" db:"is_verified"`
	TrustLevel        TrustLevel      `json:"trust_level" db:"trust_level"`
	ClaimedByBusiness bool            `json:"claimed_by_business" db:"claimed_by_business"`
	Status            BusinessStatus  `json:"status" db:"status"`
	AverageRating     decimal.Decimal `json:"average_rating" db:"average_rating"`
	ReviewCount       int             `json:"review_count" db:"review_count"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}
