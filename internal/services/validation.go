package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cheetahbyte/licensor/internal/handlers/dto"
	"github.com/cheetahbyte/licensor/internal/license"
	"github.com/cheetahbyte/licensor/internal/licensecrypto"
	"github.com/cheetahbyte/licensor/internal/metrics"
)

const (
	msgInvalidToken   = "Invalid token"
	msgTokenExpired   = "Token expired"
	msgAccountUnbound = "Account not bound to license"
)

type ValidationService struct {
	repo     license.Store
	issuer   *licensecrypto.Issuer
	metrics  *metrics.Metrics
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

func NewValidationService(d Deps, v *validator.Validate) *ValidationService {
	return &ValidationService{
		repo:     d.Store,
		issuer:   d.Issuer,
		metrics:  d.Metrics,
		logger:   d.Logger,
		validate: v,
		now:      d.Now,
	}
}

// Validate checks a license for an account, binds the account when it takes a
// free seat, and issues an access token. Rule rejections come back as an
// unsuccessful response; the error is reserved for store and signing failures.
func (svc *ValidationService) Validate(ctx context.Context, data dto.ValidationRequest) (dto.ValidationResponse, error) {
	req := license.Request{
		LicenseKey:    data.LicenseKey,
		AccountID:     data.AccountNumber,
		ClientVersion: data.EAVersion,
	}

	if err := svc.validate.Struct(data); err != nil {
		return svc.reject(license.ReasonMissingDetails), nil
	}

	found, err := svc.lookup(ctx, req.LicenseKey)
	if err != nil {
		return svc.fail("lookup", err)
	}

	out := license.Decide(found, req, svc.now())
	if !out.Accepted {
		svc.logger.Info("license validation rejected",
			"license", license.MaskKey(req.LicenseKey), "account", req.AccountID, "reason", out.Reason.String())
		return svc.reject(out.Reason), nil
	}

	if out.Bind {
		_, err := svc.repo.AppendAccount(ctx, req.LicenseKey, req.AccountID)
		switch {
		case errors.Is(err, license.ErrAccountLimitExceeded):
			// Another request took the last seat between lookup and append.
			svc.logger.Info("license seat taken concurrently", "license", license.MaskKey(req.LicenseKey), "account", req.AccountID)
			return svc.reject(license.ReasonAccountLimit), nil
		case err != nil:
			return svc.fail("append_account", err)
		}
		svc.metrics.Bindings.Inc()
		svc.logger.Info("account bound to license", "license", license.MaskKey(req.LicenseKey), "account", req.AccountID)
	}

	token, _, err := svc.issuer.Issue(req.LicenseKey, req.AccountID, req.ClientVersion)
	if err != nil {
		svc.metrics.Validations.WithLabelValues("error").Inc()
		return dto.ValidationResponse{}, fmt.Errorf("issue token: %w", err)
	}

	svc.metrics.Validations.WithLabelValues(license.ReasonNone.String()).Inc()
	return dto.ValidationResponse{Success: true, Token: token}, nil
}

// VerifyToken checks a previously issued token and that the license still
// admits the account it names.
func (svc *ValidationService) VerifyToken(ctx context.Context, data dto.TokenVerificationRequest) (dto.TokenVerificationResponse, error) {
	if err := svc.validate.Struct(data); err != nil {
		return dto.TokenVerificationResponse{Message: license.ReasonMissingDetails.Message()}, nil
	}

	claims, err := svc.issuer.Parse(data.Token)
	if errors.Is(err, licensecrypto.ErrTokenHasExpired) {
		return dto.TokenVerificationResponse{Message: msgTokenExpired}, nil
	}
	if err != nil {
		svc.logger.Debug("token rejected", "err", err)
		return dto.TokenVerificationResponse{Message: msgInvalidToken}, nil
	}

	found, err := svc.lookup(ctx, claims.LicenseKey)
	if err != nil {
		svc.metrics.StoreErrors.WithLabelValues("lookup").Inc()
		return dto.TokenVerificationResponse{}, fmt.Errorf("lookup license: %w", err)
	}

	req := license.Request{LicenseKey: claims.LicenseKey, AccountID: claims.AccountNumber, ClientVersion: claims.EAVersion}
	out := license.Decide(found, req, svc.now())
	switch {
	case out.Bind, out.Reason == license.ReasonAccountLimit:
		// Status and expiry passed but the account holds no seat.
		return dto.TokenVerificationResponse{Message: msgAccountUnbound}, nil
	case !out.Accepted:
		return dto.TokenVerificationResponse{Message: out.Reason.Message()}, nil
	}

	return dto.TokenVerificationResponse{
		Success:       true,
		LicenseKey:    claims.LicenseKey,
		AccountNumber: claims.AccountNumber,
		EAVersion:     claims.EAVersion,
		ExpiresAt:     claims.ExpiresAt.Unix(),
	}, nil
}

// lookup returns nil without error when the key is unknown.
func (svc *ValidationService) lookup(ctx context.Context, key string) (*license.License, error) {
	lic, err := svc.repo.Lookup(ctx, key)
	if errors.Is(err, license.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lic, nil
}

func (svc *ValidationService) reject(r license.Reason) dto.ValidationResponse {
	svc.metrics.Validations.WithLabelValues(r.String()).Inc()
	return dto.ValidationResponse{Success: false, Message: r.Message()}
}

func (svc *ValidationService) fail(op string, err error) (dto.ValidationResponse, error) {
	svc.metrics.StoreErrors.WithLabelValues(op).Inc()
	svc.metrics.Validations.WithLabelValues("error").Inc()
	return dto.ValidationResponse{}, fmt.Errorf("%s: %w", op, err)
}
