package server

import (
	"errors"
	"net/http"
	"strings"

	"bloodlink/pkg/types"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func (s *Service) handleGetAdminStats(w http.ResponseWriter, r *http.Request) {
	var stats types.AdminStats

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		stats.DonorsByBloodType, err = s.donors.CountByBloodType(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.DonorsByVerificationStatus, err = s.donors.CountByVerificationStatus(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.OpenRequests, err = s.requests.CountOpen(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.PendingOrganizations, err = s.organizations.CountByVerificationStatus(ctx, types.VerificationPending)
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.WithError(err).Error("failed to compute admin stats")
		s.internalServerError(w)
		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}

// handleGetAdminDonors lists donors, optionally by verification_status.
// Unlike the public list it keeps contact details.
func (s *Service) handleGetAdminDonors(w http.ResponseWriter, r *http.Request) {
	status := types.VerificationStatus(strings.TrimSpace(r.URL.Query().Get("verification_status")))

	var (
		donors []*types.Donor
		err    error
	)
	switch {
	case status == "":
		donors, err = s.donors.AllDonors(r.Context())
	case status.Valid():
		donors, err = s.donors.DonorsByVerificationStatus(r.Context(), status)
	default:
		s.writeFieldErrors(w, map[string]string{"verification_status": "Status must be pending, verified or rejected."})
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("failed to list donors for admin")
		s.internalServerError(w)
		return
	}

	s.writeJSON(w, http.StatusOK, donors)
}

func (s *Service) decodeVerification(w http.ResponseWriter, r *http.Request) (types.VerificationStatus, bool) {
	var form types.VerificationForm
	if err := s.decodeInput(r, &form); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}

	status := types.VerificationStatus(strings.TrimSpace(form.Status))
	if !status.Valid() {
		s.writeFieldErrors(w, map[string]string{"status": "Status must be pending, verified or rejected."})
		return "", false
	}

	return status, true
}

func (s *Service) handlePostDonorVerification(w http.ResponseWriter, r *http.Request) {
	status, ok := s.decodeVerification(w, r)
	if !ok {
		return
	}

	donorID := strings.TrimSpace(r.PathValue("id"))

	err := s.donors.SetVerificationStatus(r.Context(), donorID, status)
	if err != nil {
		if errors.Is(err, types.ErrDonorNotFound) {
			s.writeError(w, http.StatusNotFound, "donor not found")
			return
		}
		s.logger.WithError(err).WithField("donor_id", donorID).Error("failed to set donor verification")
		s.internalServerError(w)
		return
	}

	s.auditVerification(r, "donor", donorID, status)

	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handlePostOrganizationVerification(w http.ResponseWriter, r *http.Request) {
	status, ok := s.decodeVerification(w, r)
	if !ok {
		return
	}

	orgID := strings.TrimSpace(r.PathValue("id"))

	err := s.organizations.SetVerificationStatus(r.Context(), orgID, status)
	if err != nil {
		if errors.Is(err, types.ErrOrganizationNotFound) {
			s.writeError(w, http.StatusNotFound, "organization not found")
			return
		}
		s.logger.WithError(err).WithField("organization_id", orgID).Error("failed to set organization verification")
		s.internalServerError(w)
		return
	}

	s.auditVerification(r, "organization", orgID, status)

	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) auditVerification(r *http.Request, kind, id string, status types.VerificationStatus) {
	admin, _ := r.Context().Value(contextKeyUser).(*types.User)

	fields := logrus.Fields{"kind": kind, "id": id, "status": status}
	if admin != nil {
		fields["admin_id"] = admin.ID
	}

	s.logger.WithFields(fields).Info("verification status changed")
}
