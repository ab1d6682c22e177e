package services

import (
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cheetahbyte/licensor/internal/license"
	"github.com/cheetahbyte/licensor/internal/licensecrypto"
	"github.com/cheetahbyte/licensor/internal/metrics"
)

type ServiceStack struct {
	license    *LicenseService
	validation *ValidationService
	store      license.Store
}

type Deps struct {
	Store   license.Store
	Issuer  *licensecrypto.Issuer
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	Now     func() time.Time
}

func InitServices(d Deps) ServiceStack {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New(nil)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	v := newValidator()

	return ServiceStack{
		license:    NewLicenseService(d, v),
		validation: NewValidationService(d, v),
		store:      d.Store,
	}
}

func (s ServiceStack) License() *LicenseService { return s.license }

func (s ServiceStack) Validation() *ValidationService { return s.validation }

func (s ServiceStack) Store() license.Store { return s.store }

// newValidator reports field errors under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
