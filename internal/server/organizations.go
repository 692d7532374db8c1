package server

import (
	"net/http"
	"strings"

	"bloodlink/internal/utils"
	"bloodlink/pkg/types"
)

func (s *Service) handlePostOrganization(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userIDFromContext(r.Context())
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var form types.OrganizationForm
	if err := s.decodeInput(r, &form); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	errs := map[string]string{}

	org := &types.Organization{
		OwnerUserID: userID,
		Name:        strings.TrimSpace(form.Name),
		Type:        types.OrganizationType(strings.TrimSpace(form.Type)),
		Phone:       utils.NilIfEmpty(strings.TrimSpace(form.Phone)),
		Address:     utils.NilIfEmpty(strings.TrimSpace(form.Address)),
		City:        utils.NilIfEmpty(strings.TrimSpace(form.City)),
		Latitude:    form.Latitude,
		Longitude:   form.Longitude,
	}

	if org.Name == "" {
		errs["name"] = "Organization name is required."
	}
	if !org.Type.Valid() {
		errs["type"] = "Type must be hospital or blood_bank."
	}
	if (org.Latitude == nil) != (org.Longitude == nil) {
		errs["location"] = "Send both lat and lng, or neither."
	} else if org.Latitude != nil && !(types.Location{Lat: *org.Latitude, Lng: *org.Longitude}).Valid() {
		errs["location"] = "Coordinates are out of range."
	}

	if len(errs) > 0 {
		s.writeFieldErrors(w, errs)
		return
	}

	if err := s.organizations.Create(r.Context(), org); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("failed to create organization")
		s.internalServerError(w)
		return
	}

	if err := s.users.SetRole(r.Context(), userID, types.UserRoleOrganization); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("failed to mark user as organization")
	}

	s.writeJSON(w, http.StatusCreated, org)
}

// handleGetOrganizationRequests lists requests posted for any organization
// the caller manages.
func (s *Service) handleGetOrganizationRequests(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userIDFromContext(r.Context())
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	orgs, err := s.organizations.OrganizationsByOwner(r.Context(), userID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("failed to fetch organizations")
		s.internalServerError(w)
		return
	}

	if len(orgs) == 0 {
		s.writeError(w, http.StatusNotFound, "You do not manage any organization.")
		return
	}

	ids := make([]string, 0, len(orgs))
	for _, org := range orgs {
		ids = append(ids, org.ID)
	}

	reqs, err := s.requests.RequestsByOrganizations(r.Context(), ids)
	if err != nil {
		s.logger.WithError(err).Error("failed to fetch organization requests")
		s.internalServerError(w)
		return
	}

	s.writeJSON(w, http.StatusOK, reqs)
}
