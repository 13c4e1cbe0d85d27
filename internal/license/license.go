package license

import (
	"context"
	"fmt"
	"time"

	"trade_engine/internal/models"
	"trade_engine/internal/store"
)

const (
	MsgValid      = "License is valid"
	MsgNoLicense  = "No license is activated"
	MsgRevoked    = "License is revoked"
	MsgExpired    = "License is expired"
	MsgNotEnforce = "License checks are disabled"
)

// Status is the outcome of a license check.
type Status struct {
	UserID  string          `json:"user_id"`
	Valid   bool            `json:"valid"`
	Message string          `json:"message"`
	License *models.License `json:"license,omitempty"`
}

type Validator interface {
	Validate(ctx context.Context, userID string) (Status, error)
}

// StoreValidator checks licenses issued into the store.
type StoreValidator struct {
	store store.LicenseStore
	now   func() time.Time
}

func NewStoreValidator(st store.LicenseStore) *StoreValidator {
	return &StoreValidator{store: st, now: time.Now}
}

func (v *StoreValidator) Validate(ctx context.Context, userID string) (Status, error) {
	l, err := v.store.License(ctx, userID)
	if err != nil {
		return Status{}, fmt.Errorf("license.Validate: %w", err)
	}
	st := Status{UserID: userID, License: l}
	switch {
	case l == nil:
		st.Message = MsgNoLicense
	case l.Status == models.LicenseRevoked:
		st.Message = MsgRevoked
	case l.Status == models.LicenseExpired:
		st.Message = MsgExpired
	case l.ExpiresAt.Before(v.now()):
		st.Message = MsgExpired
		l.Status = models.LicenseExpired
		if err := v.store.SaveLicense(ctx, l); err != nil {
			return Status{}, fmt.Errorf("license.Validate: %w", err)
		}
	default:
		st.Valid = true
		st.Message = MsgValid
	}
	return st, nil
}

// AllowAll accepts every user. Used when enforcement is off.
type AllowAll struct{}

func (AllowAll) Validate(_ context.Context, userID string) (Status, error) {
	return Status{UserID: userID, Valid: true, Message: MsgNotEnforce}, nil
}
