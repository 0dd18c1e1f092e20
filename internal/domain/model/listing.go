package model

import "time"

type ListingStatus string

const (
	ListingStatusDraft   ListingStatus = "draft"
	ListingStatusActive  ListingStatus = "active"
	ListingStatusExpired ListingStatus = "expired"
	ListingStatusSold    ListingStatus = "sold"
)

// Listing is the slice of a classified ad the core needs: enough to move
// drafts back to active when a renewal frees up quota. Everything else about
// listings lives with the storefront.
type Listing struct {
	ID        string // UUID
	UserID    string // UUID
	Title     string
	Category  string
	Status    ListingStatus
	ExpiresAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
