package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"bloodlink/internal/utils"
	"bloodlink/pkg/types"
)

// myDonor loads the caller's donor profile, writing the error response itself.
func (s *Service) myDonor(w http.ResponseWriter, r *http.Request) (*types.Donor, bool) {
	userID, err := s.userIDFromContext(r.Context())
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}

	donor, err := s.donors.DonorByUserID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, types.ErrDonorNotFound) {
			s.writeError(w, http.StatusNotFound, "You have not registered as a donor yet.")
			return nil, false
		}
		s.logger.WithError(err).WithField("user_id", userID).Error("failed to fetch donor profile")
		s.internalServerError(w)
		return nil, false
	}

	return donor, true
}

func (s *Service) handleGetMyDonor(w http.ResponseWriter, r *http.Request) {
	donor, ok := s.myDonor(w, r)
	if !ok {
		return
	}

	s.writeJSON(w, http.StatusOK, donor)
}

func validateDonorForm(form *types.DonorForm) (*types.Donor, map[string]string) {
	errs := map[string]string{}

	donor := &types.Donor{
		FullName: strings.TrimSpace(form.FullName),
		Phone:    utils.NilIfEmpty(strings.TrimSpace(form.Phone)),
		City:     utils.NilIfEmpty(strings.TrimSpace(form.City)),
	}

	if donor.FullName == "" {
		errs["full_name"] = "Full name is required."
	}

	bloodType, ok := types.ParseBloodType(form.BloodType)
	if !ok {
		errs["blood_type"] = "Choose one of A+, A-, B+, B-, AB+, AB-, O+ or O-."
	}
	donor.BloodType = bloodType

	donor.Availability = types.AvailabilityNow
	if form.Availability != "" {
		donor.Availability = types.Availability(form.Availability)
		if !donor.Availability.Valid() {
			errs["availability"] = "Availability must be now, today, week or unavailable."
		}
	}

	if form.LastDonationDate != nil && *form.LastDonationDate != "" {
		date, err := time.Parse(time.DateOnly, *form.LastDonationDate)
		switch {
		case err != nil:
			errs["last_donation_date"] = "Use the YYYY-MM-DD format."
		case date.After(time.Now()):
			errs["last_donation_date"] = "Last donation cannot be in the future."
		default:
			donor.LastDonationDate = &date
		}
	}

	return donor, errs
}

// handlePutMyDonor creates the caller's donor profile or replaces its details.
// Location, verification and ownership are changed through their own routes.
func (s *Service) handlePutMyDonor(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userIDFromContext(r.Context())
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var form types.DonorForm
	if err := s.decodeInput(r, &form); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	donor, fieldErrors := validateDonorForm(&form)
	if len(fieldErrors) > 0 {
		s.writeFieldErrors(w, fieldErrors)
		return
	}

	existing, err := s.donors.DonorByUserID(r.Context(), userID)
	switch {
	case errors.Is(err, types.ErrDonorNotFound):
		donor.UserID = &userID
		if err := s.donors.Create(r.Context(), donor); err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Error("failed to create donor")
			s.internalServerError(w)
			return
		}
		s.writeJSON(w, http.StatusCreated, donor)
		return
	case err != nil:
		s.logger.WithError(err).WithField("user_id", userID).Error("failed to fetch donor profile")
		s.internalServerError(w)
		return
	}

	existing.FullName = donor.FullName
	existing.Phone = donor.Phone
	existing.City = donor.City
	existing.BloodType = donor.BloodType
	existing.Availability = donor.Availability
	existing.LastDonationDate = donor.LastDonationDate

	if err := s.donors.Update(r.Context(), existing.ID, existing); err != nil {
		s.logger.WithError(err).WithField("donor_id", existing.ID).Error("failed to update donor")
		s.internalServerError(w)
		return
	}

	s.writeJSON(w, http.StatusOK, existing)
}

// handlePutMyDonorLocation shares the donor's position. Sending neither
// coordinate stops sharing.
func (s *Service) handlePutMyDonorLocation(w http.ResponseWriter, r *http.Request) {
	donor, ok := s.myDonor(w, r)
	if !ok {
		return
	}

	var form types.DonorLocationForm
	if err := s.decodeInput(r, &form); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if (form.Latitude == nil) != (form.Longitude == nil) {
		s.writeFieldErrors(w, map[string]string{"location": "Send both lat and lng, or neither to stop sharing."})
		return
	}

	if form.Latitude != nil {
		loc := types.Location{Lat: *form.Latitude, Lng: *form.Longitude}
		if !loc.Valid() {
			s.writeFieldErrors(w, map[string]string{"location": "Coordinates are out of range."})
			return
		}
	}

	if err := s.donors.UpdateLocation(r.Context(), donor.ID, form.Latitude, form.Longitude); err != nil {
		s.logger.WithError(err).WithField("donor_id", donor.ID).Error("failed to update donor location")
		s.internalServerError(w)
		return
	}

	donor.Latitude = form.Latitude
	donor.Longitude = form.Longitude
	s.writeJSON(w, http.StatusOK, donor)
}

func (s *Service) handlePutMyDonorAvailability(w http.ResponseWriter, r *http.Request) {
	donor, ok := s.myDonor(w, r)
	if !ok {
		return
	}

	var form types.AvailabilityForm
	if err := s.decodeInput(r, &form); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	availability := types.Availability(strings.TrimSpace(form.Availability))
	if !availability.Valid() {
		s.writeFieldErrors(w, map[string]string{"availability": "Availability must be now, today, week or unavailable."})
		return
	}

	if err := s.donors.SetAvailability(r.Context(), donor.ID, availability); err != nil {
		s.logger.WithError(err).WithField("donor_id", donor.ID).Error("failed to set donor availability")
		s.internalServerError(w)
		return
	}

	donor.Availability = availability
	s.writeJSON(w, http.StatusOK, donor)
}
