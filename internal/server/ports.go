package server

import (
	"context"

	"bloodlink/internal/notify"
	"bloodlink/pkg/types"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
)

type DonorStore interface {
	AllDonors(ctx context.Context) ([]*types.Donor, error)
	DonorsByVerificationStatus(ctx context.Context, status types.VerificationStatus) ([]*types.Donor, error)
	Donor(ctx context.Context, donorID string) (*types.Donor, error)
	DonorByUserID(ctx context.Context, userID string) (*types.Donor, error)
	Create(ctx context.Context, donor *types.Donor) error
	Update(ctx context.Context, donorID string, donor *types.Donor) error
	UpdateLocation(ctx context.Context, donorID string, latitude, longitude *float64) error
	SetAvailability(ctx context.Context, donorID string, availability types.Availability) error
	SetVerificationStatus(ctx context.Context, donorID string, status types.VerificationStatus) error
	CountByBloodType(ctx context.Context) (map[types.BloodType]int, error)
	CountByVerificationStatus(ctx context.Context) (map[types.VerificationStatus]int, error)
}

type UserStore interface {
	User(ctx context.Context, userID string) (*types.User, error)
	UpsertIdentity(ctx context.Context, userID, email, givenName, familyName string) error
	SetRole(ctx context.Context, userID string, role types.UserRole) error
}

type OrganizationStore interface {
	Organization(ctx context.Context, id string) (*types.Organization, error)
	OrganizationsByOwner(ctx context.Context, userID string) ([]*types.Organization, error)
	Create(ctx context.Context, org *types.Organization) error
	SetVerificationStatus(ctx context.Context, id string, status types.VerificationStatus) error
	CountByVerificationStatus(ctx context.Context, status types.VerificationStatus) (int, error)
}

type BloodRequestStore interface {
	BloodRequest(ctx context.Context, id string) (*types.BloodRequest, error)
	OpenRequests(ctx context.Context) ([]*types.BloodRequest, error)
	RequestsByRequester(ctx context.Context, userID string) ([]*types.BloodRequest, error)
	RequestsByOrganizations(ctx context.Context, organizationIDs []string) ([]*types.BloodRequest, error)
	Create(ctx context.Context, req *types.BloodRequest) error
	Fulfill(ctx context.Context, id string) error
	Cancel(ctx context.Context, id string) error
	CountOpen(ctx context.Context) (int, error)
}

type NotificationStore interface {
	NotificationsByUser(ctx context.Context, userID string, unreadOnly bool) ([]*types.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
}

type DocumentStore interface {
	DocumentsByDonorID(ctx context.Context, donorID string) ([]*types.DonorDocument, error)
	Create(ctx context.Context, doc *types.DonorDocument) error
	Delete(ctx context.Context, donorID, documentID string) (*types.DonorDocument, error)
}

type Broadcaster interface {
	Broadcast(ctx context.Context, req *types.BloodRequest) (notify.Outcome, error)
	RequestChanged(ctx context.Context, req *types.BloodRequest) error
}

// DonorSet is the live working set the match endpoints read from.
type DonorSet interface {
	Wait(ctx context.Context) error
	Ready() bool
	Donors() []*types.Donor
	Err() error
}

type CognitoClient interface {
	SignUp(ctx context.Context, params *cognitoidentityprovider.SignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, params *cognitoidentityprovider.ConfirmSignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmSignUpOutput, error)
	InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
	GlobalSignOut(ctx context.Context, params *cognitoidentityprovider.GlobalSignOutInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.GlobalSignOutOutput, error)
}

// Identity is what a verified access token says about its bearer.
type Identity struct {
	UserID string
	Email  string
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}
