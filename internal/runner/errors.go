package runner

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrPersistence marks a tick or lifecycle change that was aborted
	// because the store failed. Nothing was applied; the call is safe to retry.
	ErrPersistence = errors.New("persistence failure")
	// ErrConfigRequired is returned by StartBot when a config is missing.
	ErrConfigRequired = errors.New("config required before bot start")
	// ErrLicense is returned by StartBot when the user has no valid license.
	ErrLicense = errors.New("license validation failed")
)

func persistence(err error, msg string) error {
	return errors.WithMessage(fmt.Errorf("%w: %w", ErrPersistence, err), msg)
}
