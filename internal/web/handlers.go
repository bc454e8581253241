package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/hhpr/odot-converter/internal/convert"
	"github.com/hhpr/odot-converter/internal/headlight"
)

// Form field names of the convert endpoint.
const (
	exportFormField = "export"
	photosFormField = "photos"
)

// Convert handles POST /convert: a multipart upload with one "export"
// JSON part and zero or more "photos" image parts, answered with the
// filled PDF.
type Convert struct {
	svc           *convert.Service
	maxUploadSize int64
}

// NewConvert creates the convert handler.
func NewConvert(svc *convert.Service, maxUploadSize int64) *Convert {
	return &Convert{svc: svc, maxUploadSize: maxUploadSize}
}

// ServeHTTP handles one conversion request.
func (h *Convert) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.New().String()
	slog.Info("Conversion request recv'd", "req_id", reqID)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		httpError(w, reqID, "Failed to parse multipart request", http.StatusBadRequest, err)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	exportJSON, err := readFormFile(r, exportFormField)
	if err != nil {
		httpError(w, reqID, "Missing or unreadable export file", http.StatusBadRequest, err)
		return
	}

	attachments, err := readPhotos(r)
	if err != nil {
		httpError(w, reqID, "Unreadable photo upload", http.StatusBadRequest, err)
		return
	}

	result, err := h.svc.Convert(r.Context(), convert.ConvertRequest{
		ExportJSON:  exportJSON,
		Attachments: attachments,
	})
	if err != nil {
		status := http.StatusInternalServerError
		var parseErr *headlight.ParseError
		var structErr *headlight.StructuralError
		if errors.As(err, &parseErr) || errors.As(err, &structErr) {
			status = http.StatusBadRequest
		}
		httpError(w, reqID, err.Error(), status, err)
		return
	}

	slog.Info("Conversion complete", "req_id", reqID,
		"resolved", result.ResolvedFields,
		"unresolved", len(result.Unresolved),
		"photos_placed", result.PhotosPlaced,
		"photos_dropped", result.PhotosDropped)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="odot-report.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.PDF)))
	if len(result.Unresolved) > 0 {
		w.Header().Set("X-Unresolved-Fields", strings.Join(result.Unresolved, ","))
	}
	if result.PhotosDropped > 0 {
		w.Header().Set("X-Photos-Dropped", strconv.Itoa(result.PhotosDropped))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.PDF); err != nil {
		slog.Error("Failed to write response", "req_id", reqID, "err", err)
	}
}

func readFormFile(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("form field %q: %w", field, err)
	}
	defer file.Close()
	return io.ReadAll(file)
}

func readPhotos(r *http.Request) ([]convert.Attachment, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File[photosFormField]
	attachments := make([]convert.Attachment, 0, len(headers))
	for _, header := range headers {
		data, err := readMultipartFile(header)
		if err != nil {
			return nil, fmt.Errorf("photo %q: %w", header.Filename, err)
		}
		attachments = append(attachments, convert.Attachment{
			Name: header.Filename,
			Data: data,
		})
	}
	return attachments, nil
}

func readMultipartFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func httpError(w http.ResponseWriter, reqID, message string, status int, err error) {
	slog.Error(message, "req_id", reqID, "err", err)
	http.Error(w, message, status)
}

// VersionHandler answers GET /version with build and catalog versions.
func VersionHandler(serverName, version, catalogVersion string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"name":    serverName,
			"version": version,
			"catalog": catalogVersion,
		})
	})
}
