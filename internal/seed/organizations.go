package seed

import (
	"context"
	"fmt"

	"bloodlink/internal/store"
	"bloodlink/internal/utils"
	"bloodlink/pkg/types"
)

var fakeOrganizations = []*types.Organization{
	{
		ID:                 "seed_org_redcross",
		Name:               "Nepal Red Cross Central Blood Transfusion Service",
		Type:               types.OrganizationBloodBank,
		Phone:              utils.StringPtr("+977-1-4288485"),
		Address:            utils.StringPtr("Exhibition Road"),
		City:               utils.StringPtr("Kathmandu"),
		Latitude:           utils.Float64Ptr(27.7019),
		Longitude:          utils.Float64Ptr(85.3157),
		VerificationStatus: types.VerificationVerified,
	},
	{
		ID:                 "seed_org_teaching",
		Name:               "Tribhuvan University Teaching Hospital",
		Type:               types.OrganizationHospital,
		Phone:              utils.StringPtr("+977-1-4412303"),
		Address:            utils.StringPtr("Maharajgunj"),
		City:               utils.StringPtr("Kathmandu"),
		Latitude:           utils.Float64Ptr(27.7356),
		Longitude:          utils.Float64Ptr(85.3302),
		VerificationStatus: types.VerificationPending,
	},
}

// SeedFakeOrganizations assigns every seeded organization to the seeded
// organization user.
func SeedFakeOrganizations(ctx context.Context, orgRepo *store.OrganizationRepository) error {
	owners := seedUserIDs(types.UserRoleOrganization)
	if len(owners) == 0 {
		return fmt.Errorf("no seeded organization user to own organizations")
	}

	for _, org := range fakeOrganizations {
		org.OwnerUserID = owners[0]
		if err := orgRepo.Upsert(ctx, org); err != nil {
			return fmt.Errorf("failed to upsert organization %s: %w", org.ID, err)
		}
	}

	fmt.Printf("Organizations seeded: %d upserted\n", len(fakeOrganizations))
	return nil
}
