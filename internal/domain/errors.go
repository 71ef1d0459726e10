package domain

import "errors"

// Sentinel errors for the domain layer.
var (
	ErrTenantNotIdentified = errors.New("domain: tenant not identified")
	ErrTenantNotFound      = errors.New("domain: tenant not found")
	ErrTenantInactive      = errors.New("domain: tenant inactive")
	ErrSubscriptionInvalid = errors.New("domain: subscription invalid")
)
