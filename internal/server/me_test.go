package server

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bloodlink/internal/utils"
	"bloodlink/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDonorForm(t *testing.T) {
	yesterday := time.Now().AddDate(0, 0, -1).Format(time.DateOnly)
	tomorrow := time.Now().AddDate(0, 0, 1).Format(time.DateOnly)

	tests := []struct {
		name       string
		form       types.DonorForm
		wantFields []string
	}{
		{"minimal", types.DonorForm{FullName: "Sita", BloodType: "b+"}, nil},
		{"with history", types.DonorForm{FullName: "Sita", BloodType: "AB-", Availability: "week", LastDonationDate: &yesterday}, nil},
		{"missing name", types.DonorForm{BloodType: "O+"}, []string{"full_name"}},
		{"bad blood type", types.DonorForm{FullName: "Sita", BloodType: "all"}, []string{"blood_type"}},
		{"bad availability", types.DonorForm{FullName: "Sita", BloodType: "O+", Availability: "later"}, []string{"availability"}},
		{"future donation", types.DonorForm{FullName: "Sita", BloodType: "O+", LastDonationDate: &tomorrow}, []string{"last_donation_date"}},
		{"bad date", types.DonorForm{FullName: "Sita", BloodType: "O+", LastDonationDate: utils.StringPtr("01/02/2024")}, []string{"last_donation_date"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			donor, errs := validateDonorForm(&tt.form)
			assert.Len(t, errs, len(tt.wantFields))
			for _, field := range tt.wantFields {
				assert.Contains(t, errs, field)
			}
			if len(tt.wantFields) == 0 {
				assert.True(t, donor.BloodType.Valid())
				assert.True(t, donor.Availability.Valid())
			}
		})
	}
}

func TestMyDonorLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/me/donor", donorToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPut, "/me/donor", donorToken, types.DonorForm{FullName: "Sita Sharma", BloodType: "o-", Phone: "9800000000"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[types.Donor](t, rec)
	assert.Equal(t, types.BloodTypeONeg, created.BloodType)
	assert.Equal(t, types.AvailabilityNow, created.Availability)
	assert.Equal(t, types.VerificationPending, created.VerificationStatus)

	rec = env.do(t, http.MethodPut, "/me/donor", donorToken, types.DonorForm{FullName: "Sita S.", BloodType: "O-"})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[types.Donor](t, rec)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Sita S.", updated.FullName)
	assert.Nil(t, updated.Phone)

	rec = env.do(t, http.MethodPut, "/me/donor/location", donorToken, types.DonorLocationForm{Latitude: utils.Float64Ptr(27.7)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/me/donor/location", donorToken, types.DonorLocationForm{Latitude: utils.Float64Ptr(27.7), Longitude: utils.Float64Ptr(85.3)})
	require.Equal(t, http.StatusOK, rec.Code)
	located := decode[types.Donor](t, rec)
	loc, ok := located.Location()
	require.True(t, ok)
	assert.Equal(t, types.Location{Lat: 27.7, Lng: 85.3}, loc)

	rec = env.do(t, http.MethodPut, "/me/donor/location", donorToken, types.DonorLocationForm{})
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := decode[types.Donor](t, rec)
	_, ok = cleared.Location()
	assert.False(t, ok)

	rec = env.do(t, http.MethodPut, "/me/donor/availability", donorToken, types.AvailabilityForm{Availability: "unavailable"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.AvailabilityUnavailable, decode[types.Donor](t, rec).Availability)

	rec = env.do(t, http.MethodPut, "/me/donor/availability", donorToken, types.AvailabilityForm{Availability: "never"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMyNotifications(t *testing.T) {
	env := newTestEnv(t)
	env.notifications.notes = []*types.Notification{
		{ID: "n1", UserID: "u-donor", Title: "Urgent O- needed"},
		{ID: "n2", UserID: "u-donor", Title: "Read already", IsRead: true},
		{ID: "n3", UserID: "u-other", Title: "Not yours"},
	}

	rec := env.do(t, http.MethodGet, "/me/notifications", donorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]*types.Notification](t, rec), 2)

	rec = env.do(t, http.MethodGet, "/me/notifications?unread=true", donorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]*types.Notification](t, rec), 1)

	rec = env.do(t, http.MethodPost, "/me/notifications/n1/read", donorToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, env.notifications.notes[0].IsRead)

	rec = env.do(t, http.MethodPost, "/me/notifications/n3/read", donorToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func uploadRequest(t *testing.T, docType, fileName string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("document_type", docType))
	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/me/donor/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+donorToken)
	return req
}

func TestMyDocuments(t *testing.T) {
	donor := kathmanduDonor("d1", types.BloodTypeONeg, 27.7, 85.3)
	donor.UserID = utils.StringPtr("u-donor")
	env := newTestEnv(t, donor)

	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

	rec := httptest.NewRecorder()
	env.svc.Handler().ServeHTTP(rec, uploadRequest(t, types.DocTypeDonorCard, "Card.PNG", png))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	doc := decode[types.DonorDocument](t, rec)
	assert.Equal(t, "image/png", doc.MimeType)
	assert.Equal(t, "d1", doc.DonorID)
	assert.Equal(t, "donors/d1/"+doc.ID+".png", doc.StorageKey)
	assert.Equal(t, png, env.bucket.objects[doc.StorageKey])

	rec = httptest.NewRecorder()
	env.svc.Handler().ServeHTTP(rec, uploadRequest(t, types.DocTypeDonorCard, "notes.txt", []byte("plain text")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	env.svc.Handler().ServeHTTP(rec, uploadRequest(t, "passport_scan", "card.png", png))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/me/donor/documents", donorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]*types.DonorDocument](t, rec), 1)

	rec = env.do(t, http.MethodDelete, "/me/donor/documents/"+doc.ID, donorToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, env.bucket.objects)

	rec = env.do(t, http.MethodDelete, "/me/donor/documents/"+doc.ID, donorToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
