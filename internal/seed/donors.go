package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bloodlink/internal/store"
	"bloodlink/internal/utils"
	"bloodlink/pkg/types"
)

type fakeDonorSeed struct {
	ID           string
	FullName     string
	Phone        string
	City         string
	BloodType    types.BloodType
	Latitude     *float64
	Longitude    *float64
	Availability types.Availability
	Status       types.VerificationStatus
	DonatedDays  int
}

// Spread across the valley, with a few outside it and two that never shared
// a location.
var fakeDonors = []fakeDonorSeed{
	{ID: "seed_donor_01", FullName: "Sita Sharma", Phone: "+977-9801000001", City: "Kathmandu", BloodType: types.BloodTypeONeg, Latitude: utils.Float64Ptr(27.7172), Longitude: utils.Float64Ptr(85.3240), Availability: types.AvailabilityNow, Status: types.VerificationVerified, DonatedDays: 120},
	{ID: "seed_donor_02", FullName: "Ram Thapa", Phone: "+977-9801000002", City: "Lalitpur", BloodType: types.BloodTypeOPos, Latitude: utils.Float64Ptr(27.6663), Longitude: utils.Float64Ptr(85.3188), Availability: types.AvailabilityToday, Status: types.VerificationVerified, DonatedDays: 200},
	{ID: "seed_donor_03", FullName: "Gita Gurung", Phone: "+977-9801000003", City: "Bhaktapur", BloodType: types.BloodTypeAPos, Latitude: utils.Float64Ptr(27.6710), Longitude: utils.Float64Ptr(85.4298), Availability: types.AvailabilityWeek, Status: types.VerificationPending},
	{ID: "seed_donor_04", FullName: "Hari Shrestha", Phone: "+977-9801000004", City: "Kirtipur", BloodType: types.BloodTypeBPos, Latitude: utils.Float64Ptr(27.6785), Longitude: utils.Float64Ptr(85.2775), Availability: types.AvailabilityNow, Status: types.VerificationVerified, DonatedDays: 95},
	{ID: "seed_donor_05", FullName: "Maya Tamang", Phone: "+977-9801000005", City: "Pokhara", BloodType: types.BloodTypeONeg, Latitude: utils.Float64Ptr(28.2096), Longitude: utils.Float64Ptr(83.9856), Availability: types.AvailabilityNow, Status: types.VerificationVerified, DonatedDays: 400},
	{ID: "seed_donor_06", FullName: "Bikash Rai", Phone: "+977-9801000006", City: "Kathmandu", BloodType: types.BloodTypeABNeg, Availability: types.AvailabilityToday, Status: types.VerificationPending},
	{ID: "seed_donor_07", FullName: "Sunita Magar", City: "Budhanilkantha", BloodType: types.BloodTypeANeg, Latitude: utils.Float64Ptr(27.7650), Longitude: utils.Float64Ptr(85.3650), Availability: types.AvailabilityUnavailable, Status: types.VerificationVerified, DonatedDays: 30},
	{ID: "seed_donor_08", FullName: "Prakash Lama", Phone: "+977-9801000008", City: "Chitwan", BloodType: types.BloodTypeBNeg, Latitude: utils.Float64Ptr(27.5291), Longitude: utils.Float64Ptr(84.3542), Availability: types.AvailabilityWeek, Status: types.VerificationRejected},
	{ID: "seed_donor_09", FullName: "Kamala Bhandari", Phone: "+977-9801000009", City: "Kathmandu", BloodType: types.BloodTypeABPos, Latitude: utils.Float64Ptr(27.7100), Longitude: utils.Float64Ptr(85.3000), Availability: types.AvailabilityNow, Status: types.VerificationVerified},
	{ID: "seed_donor_10", FullName: "Dipak Poudel", Phone: "+977-9801000010", City: "Lalitpur", BloodType: types.BloodTypeOPos, Availability: types.AvailabilityNow, Status: types.VerificationVerified, DonatedDays: 60},
}

// SeedFakeDonors upserts the fixture donors, linking the first ones to the
// seeded donor users.
func SeedFakeDonors(ctx context.Context, donorRepo *store.DonorRepository, reset bool) error {
	if reset {
		removed := 0
		for _, fake := range fakeDonors {
			err := donorRepo.Delete(ctx, fake.ID)
			if errors.Is(err, types.ErrDonorNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to reset seeded donor %s: %w", fake.ID, err)
			}
			removed++
		}
		fmt.Printf("Reset removed %d seeded donors\n", removed)
	}

	userIDs := seedUserIDs(types.UserRoleDonor)
	now := time.Now()

	for i, fake := range fakeDonors {
		donor := &types.Donor{
			ID:                 fake.ID,
			FullName:           fake.FullName,
			Phone:              utils.NilIfEmpty(fake.Phone),
			City:               utils.NilIfEmpty(fake.City),
			BloodType:          fake.BloodType,
			Latitude:           fake.Latitude,
			Longitude:          fake.Longitude,
			Availability:       fake.Availability,
			VerificationStatus: fake.Status,
		}
		if i < len(userIDs) {
			donor.UserID = utils.StringPtr(userIDs[i])
		}
		if fake.DonatedDays > 0 {
			donor.LastDonationDate = utils.TimePtr(now.AddDate(0, 0, -fake.DonatedDays).Truncate(24 * time.Hour))
		}

		if err := donorRepo.Upsert(ctx, donor); err != nil {
			return fmt.Errorf("failed to upsert donor %s: %w", fake.ID, err)
		}
	}

	fmt.Printf("Donors seeded: %d upserted\n", len(fakeDonors))
	return nil
}
