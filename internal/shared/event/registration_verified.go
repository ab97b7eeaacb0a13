package event

const RegistrationVerifiedDestination string = "otc_registration_verified"

// RegistrationVerifiedMessage hands a verified pending-registration payload
// to whatever service owns account creation.
type RegistrationVerifiedMessage struct {
	Identifier   string              `json:"identifier"`
	Registration RegistrationPayload `json:"registration"`
}

// RegistrationPayload mirrors the pending-registration snapshot captured at
// issuance time.
type RegistrationPayload struct {
	SchemaVersion int    `json:"schema_version"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Role          string `json:"role,omitempty"`
	DisplayName   string `json:"display_name,omitempty"`
	BirthDate     string `json:"birth_date,omitempty"`
}
