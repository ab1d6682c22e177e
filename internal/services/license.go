package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cheetahbyte/licensor/internal/handlers/dto"
	"github.com/cheetahbyte/licensor/internal/license"
	"github.com/cheetahbyte/licensor/internal/licensecrypto"
	"github.com/cheetahbyte/licensor/internal/metrics"
)

const msgLicenseCreated = "License created"

// expiryLayouts are the ISO 8601 shapes accepted for an expiry. Values without a
// zone are read as UTC.
var expiryLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-01",
	"2006",
}

type LicenseService struct {
	repo     license.Store
	metrics  *metrics.Metrics
	logger   *slog.Logger
	validate *validator.Validate
}

func NewLicenseService(d Deps, v *validator.Validate) *LicenseService {
	return &LicenseService{
		repo:     d.Store,
		metrics:  d.Metrics,
		logger:   d.Logger,
		validate: v,
	}
}

// NewLicense creates an active license with no bound accounts. Input problems
// wrap license.ErrInvalidLicense; an existing key wraps license.ErrDuplicateKey.
func (svc *LicenseService) NewLicense(ctx context.Context, data dto.LicenseCreationRequest) (dto.LicenseCreationResponse, error) {
	resp, err := svc.newLicense(ctx, data)
	if err != nil {
		svc.metrics.LicensesCreated.WithLabelValues("error").Inc()
		return dto.LicenseCreationResponse{}, err
	}
	svc.metrics.LicensesCreated.WithLabelValues("created").Inc()
	return resp, nil
}

func (svc *LicenseService) newLicense(ctx context.Context, data dto.LicenseCreationRequest) (dto.LicenseCreationResponse, error) {
	if err := svc.validate.Struct(data); err != nil {
		return dto.LicenseCreationResponse{}, fmt.Errorf("%w: %w", license.ErrInvalidLicense, err)
	}

	expiry, err := ParseExpiry(data.Expiry)
	if err != nil {
		return dto.LicenseCreationResponse{}, err
	}

	key := strings.TrimSpace(data.Key)
	if key == "" {
		if key, err = licensecrypto.GenerateLicenseKey(); err != nil {
			return dto.LicenseCreationResponse{}, err
		}
	}

	n := license.NewLicense{Key: key, MaxAccounts: data.MaxAccounts, Expiry: expiry}.Normalize()
	if err := n.Validate(); err != nil {
		return dto.LicenseCreationResponse{}, err
	}

	lic, err := svc.repo.Insert(ctx, n)
	if err != nil {
		return dto.LicenseCreationResponse{}, fmt.Errorf("create license: %w", err)
	}

	svc.logger.Info("license created", "license", license.MaskKey(lic.Key), "maxAccounts", lic.MaxAccounts, "expiry", lic.Expiry)
	return dto.LicenseCreationResponse{
		Success: true,
		Message: msgLicenseCreated,
		Key:     lic.Key,
	}, nil
}

// ParseExpiry parses an ISO 8601 date or timestamp. An empty string means no expiry.
func ParseExpiry(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: unrecognised expiry %q", license.ErrInvalidLicense, s)
}
