package dto

// LicenseCreationRequest is the admin payload. Expiry is an ISO 8601 date or
// timestamp; an empty Key asks the server to generate one.
type LicenseCreationRequest struct {
	Key         string `json:"key" validate:"omitempty,max=256"`
	MaxAccounts int    `json:"maxAccounts" validate:"gte=0"`
	Expiry      string `json:"expiry"`
}

type LicenseCreationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Key     string `json:"key,omitempty"`
}
