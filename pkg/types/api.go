package types

type ErrorResponse struct {
	Error       string            `json:"error"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

type MatchResponse struct {
	Requester    *Location   `json:"requester,omitempty"`
	UsedFallback bool        `json:"usedFallback"`
	Count        int         `json:"count"`
	Results      MatchResult `json:"results"`
}

type BroadcastResponse struct {
	Request        *BloodRequest `json:"request"`
	Matched        int           `json:"matched"`
	Notified       int           `json:"notified"`
	BroadcastError string        `json:"broadcastError,omitempty"`
}

type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	FeedReady bool   `json:"feedReady"`
}

type AdminStats struct {
	DonorsByBloodType          map[BloodType]int          `json:"donorsByBloodType"`
	DonorsByVerificationStatus map[VerificationStatus]int `json:"donorsByVerificationStatus"`
	OpenRequests               int                        `json:"openRequests"`
	PendingOrganizations       int                        `json:"pendingOrganizations"`
}

type RegisterForm struct {
	GivenName       string `form:"given_name" json:"givenName"`
	FamilyName      string `form:"family_name" json:"familyName"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirmPassword"`
}

type ConfirmRegisterForm struct {
	Email string `form:"email" json:"email"`
	Code  string `form:"code" json:"code"`
}

type LoginForm struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

type VerificationForm struct {
	Status string `form:"status" json:"status"`
}

type AvailabilityForm struct {
	Availability string `form:"availability" json:"availability"`
}
