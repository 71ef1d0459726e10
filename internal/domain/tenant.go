package domain

import "slices"

// TenantStatus is the lifecycle state of a tenant account.
type TenantStatus string

const (
	TenantActive    TenantStatus = "active"
	TenantInactive  TenantStatus = "inactive"
	TenantSuspended TenantStatus = "suspended"
	TenantDeleted   TenantStatus = "deleted"
)

// SubscriptionStatus is the billing state of a tenant account.
type SubscriptionStatus string

const (
	SubscriptionTrial     SubscriptionStatus = "trial"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionSuspended SubscriptionStatus = "suspended"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

// TenantLimits holds the per-plan quota ceilings for a tenant.
type TenantLimits struct {
	MaxUsers           int `json:"max_users"`
	MaxStorageGB       int `json:"max_storage_gb"`
	MaxAPICallsPerHour int `json:"max_api_calls_per_hour"`
}

// TenantConfig is the validated configuration record for one tenant,
// fetched from the registry and cached by tenant.ConfigStore. Instances
// returned to callers are read-only; re-fetch to observe updates.
type TenantConfig struct {
	Slug              string             `json:"slug"`
	DisplayName       string             `json:"display_name"`
	Status            TenantStatus       `json:"status"`
	Subscription      SubscriptionStatus `json:"subscription_status"`
	PaymentStatus     string             `json:"payment_status"`
	EnabledFeatures   []string           `json:"enabled_features"`
	Limits            TenantLimits       `json:"limits"`
	BackendURL        string             `json:"backend_url"`
	BackendCredential string             `json:"backend_credential"`
	Region            string             `json:"region"`
	Branding          map[string]any     `json:"branding"`
}

// HasFeature reports whether a plan feature is enabled for the tenant.
func (c *TenantConfig) HasFeature(name string) bool {
	return slices.Contains(c.EnabledFeatures, name)
}

// Validate checks the status and subscription fields of a freshly fetched
// record. Failures are terminal: callers must not retry.
func (c *TenantConfig) Validate() error {
	if c.Status != TenantActive {
		return ErrTenantInactive
	}
	if c.Subscription == SubscriptionSuspended || c.Subscription == SubscriptionExpired {
		return ErrSubscriptionInvalid
	}
	return nil
}
