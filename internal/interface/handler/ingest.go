package handler

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"tripmail-service/internal/domain/entity"
	"tripmail-service/internal/usecase"
)

// AccountHeader carries the account id set by the upstream auth proxy
const AccountHeader = "X-Account-ID"

type ingestResponse struct {
	Success      bool     `json:"success"`
	TripID       string   `json:"tripId,omitempty"`
	Created      bool     `json:"created,omitempty"`
	Error        string   `json:"error,omitempty"`
	State        string   `json:"state,omitempty"`
	QuarantineID string   `json:"quarantineId,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}

// jsonAttachment is the relay format of the optional "attachments" form field
type jsonAttachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// handleInboundEmail accepts a relayed email. Logic rejections answer 200
// with success=false so the relay does not retry; only infrastructure
// failures answer 5xx.
func (s *Server) handleInboundEmail(w http.ResponseWriter, r *http.Request) {
	if s.opts.WebhookToken != "" &&
		subtle.ConstantTimeCompare([]byte(r.URL.Query().Get("token")), []byte(s.opts.WebhookToken)) != 1 {
		s.respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := parseForm(r, s.opts.MaxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	from := strings.TrimSpace(r.FormValue("from"))
	if from == "" {
		s.respondError(w, http.StatusBadRequest, "from is required")
		return
	}

	doc := &entity.InboundDocument{
		From:       from,
		To:         r.FormValue("to"),
		Subject:    r.FormValue("subject"),
		Text:       r.FormValue("text"),
		HTML:       r.FormValue("html"),
		ReceivedAt: time.Now(),
		Source:     entity.SourceWebhook,
	}

	attachments, err := formAttachments(r)
	if err != nil {
		// Attachments are best effort; the body alone may still be a confirmation
		s.logger.Warn("Dropping unreadable webhook attachments", "from", from, "error", err)
	}
	doc.Attachments = attachments

	result, err := s.orchestrator.Ingest(r.Context(), doc)
	s.respondIngest(w, result, err)
}

// handleUpload accepts a PDF or EML file from an authenticated account
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	accountID := strings.TrimSpace(r.Header.Get(AccountHeader))
	if accountID == "" {
		s.respondError(w, http.StatusUnauthorized, "missing account")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "multipart body with a file is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	attachment, err := readAttachment(file, header)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "unreadable file")
		return
	}
	if !attachment.IsPDF() && !attachment.IsEML() {
		s.respondError(w, http.StatusUnsupportedMediaType, "only PDF and EML files are accepted")
		return
	}

	doc := &entity.InboundDocument{
		Subject:     r.FormValue("subject"),
		Attachments: []entity.Attachment{attachment},
		ReceivedAt:  time.Now(),
		Source:      entity.SourceUpload,
	}

	result, err := s.orchestrator.IngestForAccount(r.Context(), accountID, doc)
	s.respondIngest(w, result, err)
}

func (s *Server) respondIngest(w http.ResponseWriter, result *usecase.IngestResult, err error) {
	if err != nil {
		s.logger.Error("Ingestion failed", "error", err)
		resp := ingestResponse{Success: false, Error: usecase.MessagePersistenceFailed}
		if result != nil {
			resp.State = string(result.State)
		}
		s.respondJSON(w, http.StatusInternalServerError, resp)
		return
	}

	resp := ingestResponse{
		Success:      result.Success(),
		TripID:       result.TripID,
		Created:      result.Created,
		Error:        result.Message(),
		State:        string(result.State),
		QuarantineID: result.QuarantineID,
		Warnings:     result.Warnings,
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func parseForm(r *http.Request, maxBytes int64) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		return r.ParseMultipartForm(maxBytes)
	}
	return r.ParseForm()
}

// formAttachments collects multipart files under any field name plus the
// base64 entries of an "attachments" JSON field
func formAttachments(r *http.Request) ([]entity.Attachment, error) {
	var attachments []entity.Attachment
	var errs []error

	if r.MultipartForm != nil {
		for _, headers := range r.MultipartForm.File {
			for _, header := range headers {
				file, err := header.Open()
				if err != nil {
					errs = append(errs, err)
					continue
				}
				attachment, err := readAttachment(file, header)
				file.Close()
				if err != nil {
					errs = append(errs, err)
					continue
				}
				attachments = append(attachments, attachment)
			}
		}
	}

	if raw := strings.TrimSpace(r.FormValue("attachments")); raw != "" {
		var items []jsonAttachment
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			errs = append(errs, err)
		}
		for _, item := range items {
			data, err := base64.StdEncoding.DecodeString(item.Content)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			attachments = append(attachments, entity.Attachment{
				Filename:    item.Filename,
				ContentType: contentType(item.Filename, item.ContentType, data),
				Size:        len(data),
				Data:        data,
			})
		}
	}

	return attachments, errors.Join(errs...)
}

func readAttachment(file multipart.File, header *multipart.FileHeader) (entity.Attachment, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return entity.Attachment{}, err
	}
	return entity.Attachment{
		Filename:    filepath.Base(header.Filename),
		ContentType: contentType(header.Filename, header.Header.Get("Content-Type"), data),
		Size:        len(data),
		Data:        data,
	}, nil
}

// contentType trusts the declared type unless it is missing or generic
func contentType(filename, declared string, data []byte) string {
	declared = strings.TrimSpace(strings.SplitN(declared, ";", 2)[0])
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".eml":
		return "message/rfc822"
	}
	return http.DetectContentType(data)
}
