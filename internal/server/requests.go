package server

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"bloodlink/pkg/types"

	"github.com/sirupsen/logrus"
)

func validateBloodRequestForm(form *types.BloodRequestForm) (*types.BloodRequest, map[string]string) {
	errs := map[string]string{}

	req := &types.BloodRequest{
		PatientName:  strings.TrimSpace(form.PatientName),
		Units:        form.Units,
		HospitalName: strings.TrimSpace(form.HospitalName),
		ContactPhone: strings.TrimSpace(form.ContactPhone),
		Latitude:     form.Latitude,
		Longitude:    form.Longitude,
		RadiusKm:     form.RadiusKm,
	}

	if orgID := strings.TrimSpace(form.OrganizationID); orgID != "" {
		req.OrganizationID = &orgID
	}

	if req.PatientName == "" {
		errs["patient_name"] = "Patient name is required."
	}

	bloodType, ok := types.ParseBloodType(form.BloodType)
	if !ok {
		errs["blood_type"] = "Choose one of A+, A-, B+, B-, AB+, AB-, O+ or O-."
	}
	req.BloodType = bloodType

	if req.Units < 1 {
		errs["units"] = "At least one unit is required."
	}

	req.Urgency = types.UrgencyNormal
	if form.Urgency != "" {
		req.Urgency = types.Urgency(form.Urgency)
		if !req.Urgency.Valid() {
			errs["urgency"] = "Urgency must be critical, high or normal."
		}
	}

	if req.HospitalName == "" {
		errs["hospital_name"] = "Hospital name is required."
	}

	if req.ContactPhone == "" {
		errs["contact_phone"] = "A contact phone is required."
	}

	if (req.Latitude == nil) != (req.Longitude == nil) {
		errs["location"] = "Send both lat and lng, or neither."
	} else if loc, ok := req.Location(); ok && !loc.Valid() {
		errs["location"] = "Coordinates are out of range."
	}

	if req.RadiusKm != nil && (math.IsNaN(*req.RadiusKm) || *req.RadiusKm < 0) {
		errs["radius_km"] = "Radius must be zero or more."
	}

	return req, errs
}

// handlePostRequest stores an emergency request and broadcasts it to the
// matching donors nearby.
func (s *Service) handlePostRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userIDFromContext(r.Context())
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var form types.BloodRequestForm
	if err := s.decodeInput(r, &form); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, fieldErrors := validateBloodRequestForm(&form)
	if len(fieldErrors) > 0 {
		s.writeFieldErrors(w, fieldErrors)
		return
	}
	req.RequesterID = userID

	if req.OrganizationID != nil {
		org, err := s.organizations.Organization(r.Context(), *req.OrganizationID)
		if err != nil && !errors.Is(err, types.ErrOrganizationNotFound) {
			s.logger.WithError(err).Error("failed to fetch organization for request")
			s.internalServerError(w)
			return
		}
		if org == nil || org.OwnerUserID != userID {
			s.writeFieldErrors(w, map[string]string{"organization_id": "You can only post for organizations you manage."})
			return
		}
		if org.VerificationStatus == types.VerificationRejected {
			s.writeError(w, http.StatusForbidden, "This organization has been rejected and cannot post requests.")
			return
		}
	}

	if err := s.requests.Create(r.Context(), req); err != nil {
		s.logger.WithError(err).Error("failed to create blood request")
		s.internalServerError(w)
		return
	}

	logger := s.logger.WithFields(logrus.Fields{"request_id": req.ID, "blood_type": req.BloodType})

	resp := types.BroadcastResponse{Request: req}

	outcome, err := s.broadcaster.Broadcast(r.Context(), req)
	if err != nil {
		// the request itself is saved; donors can still find it in the open list
		logger.WithError(err).Error("failed to broadcast blood request")
		resp.BroadcastError = "Request saved, but donors could not be notified yet."
	} else {
		resp.Matched = outcome.Matched
		resp.Notified = outcome.Notified
		req.NotifiedCount = outcome.Notified
	}

	if err := s.broadcaster.RequestChanged(r.Context(), req); err != nil {
		logger.WithError(err).Warn("failed to publish request created event")
	}

	s.writeJSON(w, http.StatusCreated, resp)
}

func (s *Service) handleGetRequests(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userIDFromContext(r.Context())
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var reqs []*types.BloodRequest
	if mine, _ := strconv.ParseBool(r.URL.Query().Get("mine")); mine {
		reqs, err = s.requests.RequestsByRequester(r.Context(), userID)
	} else {
		reqs, err = s.requests.OpenRequests(r.Context())
	}
	if err != nil {
		s.logger.WithError(err).Error("failed to list blood requests")
		s.internalServerError(w)
		return
	}

	s.writeJSON(w, http.StatusOK, reqs)
}

func (s *Service) loadRequest(w http.ResponseWriter, r *http.Request) (*types.BloodRequest, bool) {
	id := strings.TrimSpace(r.PathValue("id"))

	req, err := s.requests.BloodRequest(r.Context(), id)
	if err != nil {
		if errors.Is(err, types.ErrBloodRequestNotFound) {
			s.writeError(w, http.StatusNotFound, "blood request not found")
			return nil, false
		}
		s.logger.WithError(err).WithField("request_id", id).Error("failed to fetch blood request")
		s.internalServerError(w)
		return nil, false
	}

	return req, true
}

func (s *Service) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	req, ok := s.loadRequest(w, r)
	if !ok {
		return
	}

	s.writeJSON(w, http.StatusOK, req)
}

func (s *Service) handlePostRequestFulfill(w http.ResponseWriter, r *http.Request) {
	s.closeRequest(w, r, types.BloodRequestFulfilled)
}

func (s *Service) handlePostRequestCancel(w http.ResponseWriter, r *http.Request) {
	s.closeRequest(w, r, types.BloodRequestCancelled)
}

// closeRequest moves an open request to status. Only its requester or an
// admin may do so.
func (s *Service) closeRequest(w http.ResponseWriter, r *http.Request, status types.BloodRequestStatus) {
	userID, err := s.userIDFromContext(r.Context())
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	req, ok := s.loadRequest(w, r)
	if !ok {
		return
	}

	if req.RequesterID != userID {
		user, err := s.users.User(r.Context(), userID)
		if err != nil && !errors.Is(err, types.ErrUserNotFound) {
			s.logger.WithError(err).WithField("user_id", userID).Error("failed to load user")
			s.internalServerError(w)
			return
		}
		if !user.HasAdminAccess() {
			s.writeError(w, http.StatusForbidden, "Only the requester can close this request.")
			return
		}
	}

	if req.Status != types.BloodRequestOpen {
		s.writeError(w, http.StatusConflict, "This request is already "+string(req.Status)+".")
		return
	}

	if status == types.BloodRequestFulfilled {
		err = s.requests.Fulfill(r.Context(), req.ID)
	} else {
		err = s.requests.Cancel(r.Context(), req.ID)
	}
	if err != nil {
		if errors.Is(err, types.ErrBloodRequestNotFound) {
			// closed by someone else between the read and the write
			s.writeError(w, http.StatusConflict, "This request is no longer open.")
			return
		}
		s.logger.WithError(err).WithField("request_id", req.ID).Error("failed to close blood request")
		s.internalServerError(w)
		return
	}

	req.Status = status
	if err := s.broadcaster.RequestChanged(r.Context(), req); err != nil {
		s.logger.WithError(err).WithField("request_id", req.ID).Warn("failed to publish request status event")
	}

	s.writeJSON(w, http.StatusOK, req)
}
