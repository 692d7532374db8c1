package server

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"bloodlink/internal/storage"
	"bloodlink/internal/utils"
	"bloodlink/pkg/types"
)

var allowedDocumentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
}

func (s *Service) handleGetMyDocuments(w http.ResponseWriter, r *http.Request) {
	donor, ok := s.myDonor(w, r)
	if !ok {
		return
	}

	docs, err := s.documents.DocumentsByDonorID(r.Context(), donor.ID)
	if err != nil {
		s.logger.WithError(err).WithField("donor_id", donor.ID).Error("failed to fetch donor documents")
		s.internalServerError(w)
		return
	}

	s.writeJSON(w, http.StatusOK, docs)
}

// handlePostMyDocument accepts a multipart upload in the "file" field along
// with a "document_type".
func (s *Service) handlePostMyDocument(w http.ResponseWriter, r *http.Request) {
	if s.bucket == nil {
		s.writeError(w, http.StatusServiceUnavailable, "document storage is not configured")
		return
	}

	donor, ok := s.myDonor(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxDocumentSizeByte+(1<<16))
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, "Upload is too large or malformed.")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	docType := strings.TrimSpace(r.FormValue("document_type"))
	if !types.ValidDocumentType(docType) {
		s.writeFieldErrors(w, map[string]string{"document_type": "Unknown document type."})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeFieldErrors(w, map[string]string{"file": "Attach a file."})
		return
	}
	defer file.Close()

	if header.Size > s.config.MaxDocumentSizeByte {
		s.writeFieldErrors(w, map[string]string{"file": "File is too large."})
		return
	}

	sniff := make([]byte, 512)
	n, err := io.ReadFull(file, sniff)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		s.logger.WithError(err).Error("failed to read uploaded document")
		s.internalServerError(w)
		return
	}

	mimeType := http.DetectContentType(sniff[:n])
	if !allowedDocumentTypes[mimeType] {
		s.writeFieldErrors(w, map[string]string{"file": "Only PDF, JPEG and PNG files are accepted."})
		return
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		s.logger.WithError(err).Error("failed to rewind uploaded document")
		s.internalServerError(w)
		return
	}

	doc := &types.DonorDocument{
		ID:            utils.NanoID(),
		DonorID:       donor.ID,
		DocumentType:  docType,
		FileName:      filepath.Base(header.Filename),
		FileSizeBytes: header.Size,
		MimeType:      mimeType,
	}
	doc.StorageKey = storage.DocumentKey(donor.ID, doc.ID, doc.FileName)

	if err := s.bucket.Upload(r.Context(), doc.StorageKey, file, mimeType); err != nil {
		s.logger.WithError(err).WithField("donor_id", donor.ID).Error("failed to upload donor document")
		s.writeError(w, http.StatusBadGateway, "Unable to store the document right now.")
		return
	}

	if err := s.documents.Create(r.Context(), doc); err != nil {
		s.logger.WithError(err).WithField("donor_id", donor.ID).Error("failed to record donor document")
		if delErr := s.bucket.Delete(r.Context(), doc.StorageKey); delErr != nil {
			s.logger.WithError(delErr).WithField("storage_key", doc.StorageKey).Error("failed to clean up orphaned document")
		}
		s.internalServerError(w)
		return
	}

	s.writeJSON(w, http.StatusCreated, doc)
}

func (s *Service) handleDeleteMyDocument(w http.ResponseWriter, r *http.Request) {
	donor, ok := s.myDonor(w, r)
	if !ok {
		return
	}

	documentID := strings.TrimSpace(r.PathValue("documentID"))

	doc, err := s.documents.Delete(r.Context(), donor.ID, documentID)
	if err != nil {
		if errors.Is(err, types.ErrDocumentNotFound) {
			s.writeError(w, http.StatusNotFound, "document not found")
			return
		}
		s.logger.WithError(err).WithField("document_id", documentID).Error("failed to delete donor document")
		s.internalServerError(w)
		return
	}

	if s.bucket != nil {
		if err := s.bucket.Delete(r.Context(), doc.StorageKey); err != nil {
			s.logger.WithError(err).WithField("storage_key", doc.StorageKey).Warn("document record removed but object remains")
		}
	}

	w.WriteHeader(http.StatusNoContent)
}
