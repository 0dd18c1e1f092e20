package model

import "time"

// UnlimitedAds marks an entitlement without a quota (staff bypass).
const UnlimitedAds = -1

// Entitlement is the computed posting permission for one user at one instant.
// It is derived on every read and never stored.
type Entitlement struct {
	CanPostAd      bool       `json:"can_post_ad"`
	MaxAds         int        `json:"max_ads"`
	AdsUsed        int        `json:"ads_used"`
	AdsRemaining   int        `json:"ads_remaining"`
	PackageID      string     `json:"package_id,omitempty"`
	SubscriptionID string     `json:"subscription_id,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	IsAdminBypass  bool       `json:"is_admin_bypass"`

	// AutoEnrolled marks that this read provisioned a starter grant.
	AutoEnrolled bool `json:"-"`
}

// DeniedEntitlement is the all-zero result: no user, no subscription, no
// starter package available.
func DeniedEntitlement() Entitlement {
	return Entitlement{}
}

// AdminEntitlement is the unlimited staff bypass.
func AdminEntitlement() Entitlement {
	return Entitlement{
		CanPostAd:     true,
		MaxAds:        UnlimitedAds,
		AdsRemaining:  UnlimitedAds,
		IsAdminBypass: true,
	}
}

// EntitlementFromSubscription computes quota arithmetic for a current
// subscription. AdsRemaining clamps at zero for over-used subscriptions.
func EntitlementFromSubscription(sub *SellerSubscription, pkg *SubscriptionPackage) Entitlement {
	remaining := pkg.MaxAds - sub.AdsUsed
	if remaining < 0 {
		remaining = 0
	}
	return Entitlement{
		CanPostAd:      remaining > 0,
		MaxAds:         pkg.MaxAds,
		AdsUsed:        sub.AdsUsed,
		AdsRemaining:   remaining,
		PackageID:      pkg.ID,
		SubscriptionID: sub.ID,
		ExpiresAt:      sub.ExpiresAt,
	}
}
