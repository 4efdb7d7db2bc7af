package config

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	sigilerr "github.com/mrz1836/sigilid/pkg/errors"
)

//nolint:gochecknoglobals // validator caches struct metadata and is safe for concurrent use
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg and reports every failing field as an ErrConfigInvalid.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			details := make(map[string]string, len(fieldErrs))
			for _, fe := range fieldErrs {
				details[strings.TrimPrefix(fe.Namespace(), "Config.")] = fe.Tag()
			}
			return sigilerr.WithDetails(sigilerr.ErrConfigInvalid, details)
		}
		return invalid(err)
	}

	if _, ok := cfg.Network(); !ok {
		return sigilerr.WithDetails(sigilerr.ErrConfigInvalid, map[string]string{
			"CurrentNetwork": cfg.CurrentNetwork,
		})
	}
	return nil
}

func invalid(err error) error {
	return sigilerr.WithCause(sigilerr.ErrConfigInvalid, err)
}
