package models

// Profile holds the optional nested profile record attached to a user.
type Profile struct {
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Address     string `json:"address,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
}

// User is the identity record returned by the auth endpoints.
type User struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	FullName  string   `json:"fullName,omitempty"`
	IsActive  bool     `json:"isActive,omitempty"`
	Profile   *Profile `json:"profile,omitempty"`
	CreatedAt string   `json:"createdAt,omitempty"`
	UpdatedAt string   `json:"updatedAt,omitempty"`
}

// TokenPair is the credential pair minted on successful code verification.
// RefreshToken may be absent on some login responses.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}
