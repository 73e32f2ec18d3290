package shared

import (
	"errors"
	"mime/multipart"
	"net/http"

	"paie/internal/domain/spreadsheet"
	"paie/internal/transport/http/api"
)

// Upload opens a spreadsheet sent as a multipart form field and resolves its
// format from the file name. The response is written when ok is false.
func Upload(w http.ResponseWriter, r *http.Request, field string, maxBytes int64, requestID string) (multipart.File, string, bool) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "uploaded file too large", requestID)
			return nil, "", false
		}
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "expected a multipart form upload", requestID)
		return nil, "", false
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		FailValidation(w, requestID, []ValidationIssue{{Field: field, Reason: "is required"}})
		return nil, "", false
	}
	format, err := spreadsheet.FormatFromName(header.Filename)
	if err != nil {
		file.Close()
		FailValidation(w, requestID, []ValidationIssue{{Field: field, Reason: err.Error()}})
		return nil, "", false
	}
	return file, format, true
}
