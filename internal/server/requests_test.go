package server

import (
	"net/http"
	"testing"

	"bloodlink/internal/notify"
	"bloodlink/internal/utils"
	"bloodlink/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequestForm() types.BloodRequestForm {
	return types.BloodRequestForm{
		PatientName:  "Ram Bahadur",
		BloodType:    "o-",
		Units:        2,
		Urgency:      "critical",
		HospitalName: "Bir Hospital",
		ContactPhone: "+977-1-4221119",
		Latitude:     utils.Float64Ptr(27.7050),
		Longitude:    utils.Float64Ptr(85.3130),
		RadiusKm:     utils.Float64Ptr(15),
	}
}

func TestPostRequestBroadcasts(t *testing.T) {
	env := newTestEnv(t)
	env.broadcaster.outcome = notify.Outcome{Matched: 3, Notified: 2}

	rec := env.do(t, http.MethodPost, "/requests", donorToken, validRequestForm())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[types.BroadcastResponse](t, rec)
	assert.Equal(t, 3, resp.Matched)
	assert.Equal(t, 2, resp.Notified)
	assert.Empty(t, resp.BroadcastError)
	require.NotNil(t, resp.Request)
	assert.Equal(t, types.BloodTypeONeg, resp.Request.BloodType)
	assert.Equal(t, "u-donor", resp.Request.RequesterID)
	assert.Equal(t, types.BloodRequestOpen, resp.Request.Status)

	require.Len(t, env.broadcaster.broadcast, 1)
	assert.Equal(t, resp.Request.ID, env.broadcaster.broadcast[0].ID)
	assert.Equal(t, []types.BloodRequestStatus{types.BloodRequestOpen}, env.broadcaster.changed)
}

func TestPostRequestKeepsRequestWhenBroadcastFails(t *testing.T) {
	env := newTestEnv(t)
	env.broadcaster.err = assert.AnError

	rec := env.do(t, http.MethodPost, "/requests", donorToken, validRequestForm())
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decode[types.BroadcastResponse](t, rec)
	assert.NotEmpty(t, resp.BroadcastError)
	assert.Len(t, env.requests.reqs, 1)
}

func TestPostRequestValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		mutate func(*types.BloodRequestForm)
		field  string
	}{
		{"patient", func(f *types.BloodRequestForm) { f.PatientName = " " }, "patient_name"},
		{"blood type", func(f *types.BloodRequestForm) { f.BloodType = "Z" }, "blood_type"},
		{"units", func(f *types.BloodRequestForm) { f.Units = 0 }, "units"},
		{"urgency", func(f *types.BloodRequestForm) { f.Urgency = "whenever" }, "urgency"},
		{"hospital", func(f *types.BloodRequestForm) { f.HospitalName = "" }, "hospital_name"},
		{"phone", func(f *types.BloodRequestForm) { f.ContactPhone = "" }, "contact_phone"},
		{"half a location", func(f *types.BloodRequestForm) { f.Longitude = nil }, "location"},
		{"location out of range", func(f *types.BloodRequestForm) { f.Latitude = utils.Float64Ptr(120) }, "location"},
		{"negative radius", func(f *types.BloodRequestForm) { f.RadiusKm = utils.Float64Ptr(-1) }, "radius_km"},
		{"foreign organization", func(f *types.BloodRequestForm) { f.OrganizationID = "nope" }, "organization_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validRequestForm()
			tt.mutate(&form)

			rec := env.do(t, http.MethodPost, "/requests", donorToken, form)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decode[types.ErrorResponse](t, rec).FieldErrors, tt.field)
		})
	}

	assert.Empty(t, env.broadcaster.broadcast)
}

func TestPostRequestForOrganization(t *testing.T) {
	env := newTestEnv(t)
	env.organizations.orgs["bir"] = &types.Organization{ID: "bir", OwnerUserID: "u-donor", VerificationStatus: types.VerificationVerified}
	env.organizations.orgs["bad"] = &types.Organization{ID: "bad", OwnerUserID: "u-donor", VerificationStatus: types.VerificationRejected}

	form := validRequestForm()
	form.OrganizationID = "bir"
	rec := env.do(t, http.MethodPost, "/requests", donorToken, form)
	require.Equal(t, http.StatusCreated, rec.Code)

	form.OrganizationID = "bad"
	rec = env.do(t, http.MethodPost, "/requests", donorToken, form)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/org/requests", donorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	reqs := decode[[]*types.BloodRequest](t, rec)
	require.Len(t, reqs, 1)
	assert.Equal(t, "bir", *reqs[0].OrganizationID)

	rec = env.do(t, http.MethodGet, "/org/requests", otherToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCloseRequest(t *testing.T) {
	env := newTestEnv(t)
	env.requests.reqs["r1"] = &types.BloodRequest{ID: "r1", RequesterID: "u-donor", Status: types.BloodRequestOpen}
	env.requests.reqs["r2"] = &types.BloodRequest{ID: "r2", RequesterID: "u-donor", Status: types.BloodRequestOpen}

	rec := env.do(t, http.MethodPost, "/requests/r1/fulfill", otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/requests/r1/fulfill", donorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.BloodRequestFulfilled, decode[types.BloodRequest](t, rec).Status)

	rec = env.do(t, http.MethodPost, "/requests/r1/cancel", donorToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// admins may close anyone's request
	rec = env.do(t, http.MethodPost, "/requests/r2/cancel", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/requests/missing/cancel", donorToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, []types.BloodRequestStatus{types.BloodRequestFulfilled, types.BloodRequestCancelled}, env.broadcaster.changed)
}

func TestListRequests(t *testing.T) {
	env := newTestEnv(t)
	env.requests.reqs["r1"] = &types.BloodRequest{ID: "r1", RequesterID: "u-other", Status: types.BloodRequestOpen}
	env.requests.reqs["r2"] = &types.BloodRequest{ID: "r2", RequesterID: "u-donor", Status: types.BloodRequestFulfilled}

	rec := env.do(t, http.MethodGet, "/requests", donorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	open := decode[[]*types.BloodRequest](t, rec)
	require.Len(t, open, 1)
	assert.Equal(t, "r1", open[0].ID)

	rec = env.do(t, http.MethodGet, "/requests?mine=true", donorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode[[]*types.BloodRequest](t, rec)
	require.Len(t, mine, 1)
	assert.Equal(t, "r2", mine[0].ID)

	rec = env.do(t, http.MethodGet, "/requests/r2", otherToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPostOrganization(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/organizations", otherToken, types.OrganizationForm{Name: "Nepal Red Cross", Type: "blood_bank"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	org := decode[types.Organization](t, rec)
	assert.Equal(t, "u-other", org.OwnerUserID)
	assert.Equal(t, types.VerificationPending, org.VerificationStatus)
	assert.Equal(t, types.UserRoleOrganization, env.users.roles["u-other"])

	rec = env.do(t, http.MethodPost, "/organizations", otherToken, types.OrganizationForm{Name: "", Type: "clinic"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decode[types.ErrorResponse](t, rec).FieldErrors
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "type")
}
