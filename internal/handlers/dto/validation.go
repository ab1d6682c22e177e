package dto

type ValidationRequest struct {
	LicenseKey    string `json:"license_key" validate:"required"`
	AccountNumber int64  `json:"account_number" validate:"required"`
	EAVersion     string `json:"ea_version"`
}

// ValidationResponse carries Token on success and Message otherwise.
type ValidationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Token   string `json:"token,omitempty"`
}

type TokenVerificationRequest struct {
	Token string `json:"token" validate:"required"`
}

type TokenVerificationResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
	LicenseKey    string `json:"license_key,omitempty"`
	AccountNumber int64  `json:"account_number,omitempty"`
	EAVersion     string `json:"ea_version,omitempty"`
	ExpiresAt     int64  `json:"expires_at,omitempty"`
}
