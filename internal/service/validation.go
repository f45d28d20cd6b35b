package service

import (
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/mentor-booking-api/internal/models"
	appErrors "github.com/noah-isme/mentor-booking-api/pkg/errors"
)

// newValidator returns validate, or a fresh validator, with the booking tags
// registered: hhmm for zero-padded 24h times and datestr for YYYY-MM-DD days.
func newValidator(validate *validator.Validate) *validator.Validate {
	if validate == nil {
		validate = validator.New()
	}
	_ = validate.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, err := models.ParseTimeOfDay(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("datestr", func(fl validator.FieldLevel) bool {
		_, err := models.ParseDate(fl.Field().String())
		return err == nil
	})
	return validate
}

func invalidArgument(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func requireCaller(caller *models.JWTClaims) error {
	if caller == nil || caller.UserID == "" {
		return appErrors.ErrUnauthorized
	}
	return nil
}
