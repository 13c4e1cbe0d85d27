package models

import "time"

type LicenseStatus string

const (
	LicenseActive  LicenseStatus = "active"
	LicenseExpired LicenseStatus = "expired"
	LicenseRevoked LicenseStatus = "revoked"
)

// License is issued elsewhere; this service only validates it.
type License struct {
	Key       string        `json:"license_key" yaml:"license_key"`
	UserID    string        `json:"user_id" yaml:"user_id"`
	Status    LicenseStatus `json:"status" yaml:"status" validate:"oneof=active expired revoked"`
	ExpiresAt time.Time     `json:"expires_at" yaml:"expires_at"`
}
