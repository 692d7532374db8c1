package seed

import (
	"context"
	"fmt"

	"bloodlink/internal/store"
	"bloodlink/internal/utils"
	"bloodlink/pkg/types"
)

type fakeUserSeed struct {
	ID         string
	Email      string
	GivenName  string
	FamilyName string
	Role       types.UserRole
	IsAdmin    bool
}

var fakeUsers = []fakeUserSeed{
	{ID: "11111111-1111-1111-1111-111111111111", Email: "sita.sharma+seed1@example.com", GivenName: "Sita", FamilyName: "Sharma", Role: types.UserRoleDonor},
	{ID: "22222222-2222-2222-2222-222222222222", Email: "ram.thapa+seed2@example.com", GivenName: "Ram", FamilyName: "Thapa", Role: types.UserRoleDonor},
	{ID: "33333333-3333-3333-3333-333333333333", Email: "gita.gurung+seed3@example.com", GivenName: "Gita", FamilyName: "Gurung", Role: types.UserRoleDonor},
	{ID: "44444444-4444-4444-4444-444444444444", Email: "hari.shrestha+seed4@example.com", GivenName: "Hari", FamilyName: "Shrestha", Role: types.UserRoleDonor},
	{ID: "55555555-5555-5555-5555-555555555555", Email: "maya.tamang+seed5@example.com", GivenName: "Maya", FamilyName: "Tamang", Role: types.UserRoleDonor},
	{ID: "66666666-6666-6666-6666-666666666666", Email: "bikash.rai+seed6@example.com", GivenName: "Bikash", FamilyName: "Rai", Role: types.UserRoleDonor},
	{ID: "77777777-7777-7777-7777-777777777777", Email: "bloodbank+seed7@example.com", GivenName: "Anita", FamilyName: "Karki", Role: types.UserRoleOrganization},
	{ID: "88888888-8888-8888-8888-888888888888", Email: "admin+seed8@example.com", GivenName: "Suresh", FamilyName: "Adhikari", Role: types.UserRoleAdmin, IsAdmin: true},
}

func seedUserIDs(role types.UserRole) []string {
	ids := make([]string, 0, len(fakeUsers))
	for _, user := range fakeUsers {
		if user.Role == role {
			ids = append(ids, user.ID)
		}
	}
	return ids
}

func SeedFakeUsers(ctx context.Context, userRepo *store.UserRepository) error {
	for _, fakeUser := range fakeUsers {
		user := &types.User{
			ID:         fakeUser.ID,
			Email:      utils.StringPtr(fakeUser.Email),
			GivenName:  utils.StringPtr(fakeUser.GivenName),
			FamilyName: utils.StringPtr(fakeUser.FamilyName),
			Role:       fakeUser.Role,
			IsAdmin:    fakeUser.IsAdmin,
		}

		if err := userRepo.Upsert(ctx, user); err != nil {
			return fmt.Errorf("failed to upsert fake user %s: %w", fakeUser.ID, err)
		}
	}

	fmt.Printf("Fake users seeded: %d upserted\n", len(fakeUsers))
	return nil
}
