package license

import "time"

type Reason int

const (
	ReasonNone Reason = iota
	ReasonMissingDetails
	ReasonInvalidKey
	ReasonDisabled
	ReasonExpired
	ReasonAccountLimit
)

// Message is the text reported to clients for a rejection.
func (r Reason) Message() string {
	switch r {
	case ReasonMissingDetails:
		return "Missing details"
	case ReasonInvalidKey:
		return "Invalid license key"
	case ReasonDisabled:
		return "License disabled"
	case ReasonExpired:
		return "License expired"
	case ReasonAccountLimit:
		return "Account limit exceeded. Contact support."
	default:
		return ""
	}
}

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "accepted"
	case ReasonMissingDetails:
		return "missing_details"
	case ReasonInvalidKey:
		return "invalid_key"
	case ReasonDisabled:
		return "disabled"
	case ReasonExpired:
		return "expired"
	case ReasonAccountLimit:
		return "account_limit"
	default:
		return "unknown"
	}
}

type Request struct {
	LicenseKey    string
	AccountID     int64
	ClientVersion string
}

// Outcome is the result of Decide. Bind is set only on an accepted request whose
// account is not yet bound.
type Outcome struct {
	Accepted bool
	Bind     bool
	Reason   Reason
}

func reject(r Reason) Outcome { return Outcome{Reason: r} }

// CheckRequest performs the input check that precedes any store access.
func CheckRequest(req Request) Outcome {
	if req.LicenseKey == "" || req.AccountID == 0 {
		return reject(ReasonMissingDetails)
	}
	return Outcome{Accepted: true}
}

// Decide applies the validation rules in order; the first failing rule wins.
// lic is nil when no license exists for req.LicenseKey.
func Decide(lic *License, req Request, now time.Time) Outcome {
	if out := CheckRequest(req); !out.Accepted {
		return out
	}
	if lic == nil {
		return reject(ReasonInvalidKey)
	}
	if !lic.Active() {
		return reject(ReasonDisabled)
	}
	if lic.ExpiredAt(now) {
		return reject(ReasonExpired)
	}
	if lic.HasAccount(req.AccountID) {
		return Outcome{Accepted: true}
	}
	if !lic.SeatsAvailable() {
		return reject(ReasonAccountLimit)
	}
	return Outcome{Accepted: true, Bind: true}
}
