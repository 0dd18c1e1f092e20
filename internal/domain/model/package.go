package model

import (
	"time"

	"classifieds-marketplace/internal/domain"
)

// SubscriptionPackage is a catalog entry: price, window, and ad quota.
// Read-only from the core's perspective; managed by the storefront admin.
type SubscriptionPackage struct {
	ID                string
	Name              string
	Price             int64 // whole KES; 0 marks a starter plan
	DurationDays      int
	MaxAds            int
	AllowedCategories []string
	AnalyticsAccess   bool
	DisplayPriority   int
	IsActive          bool
	CreatedAt         time.Time
}

func (p *SubscriptionPackage) IsZero() bool { return p == nil || p.ID == "" }

func (p *SubscriptionPackage) IsFree() bool { return p != nil && p.Price == 0 }

// NewSubscriptionPackage validates and constructs a package.
func NewSubscriptionPackage(id, name string, price int64, durationDays, maxAds int) (*SubscriptionPackage, error) {
	if id == "" || name == "" || price < 0 || durationDays <= 0 || maxAds < 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &SubscriptionPackage{
		ID:           id,
		Name:         name,
		Price:        price,
		DurationDays: durationDays,
		MaxAds:       maxAds,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}, nil
}
