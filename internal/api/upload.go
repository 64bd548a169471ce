package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
)

// MaxUploadSize bounds multipart bodies accepted by upload endpoints.
const MaxUploadSize = 10 << 20

// FormFile reads one file part from a multipart request. Oversized bodies
// and missing parts are reported as 400s.
func FormFile(w http.ResponseWriter, r *http.Request, field string) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, nil, WrapError(http.StatusRequestEntityTooLarge,
				fmt.Sprintf("File must not exceed %d MB", MaxUploadSize>>20), err)
		}
		return nil, nil, WrapError(http.StatusBadRequest, "Request must be multipart/form-data", err)
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, WrapError(http.StatusBadRequest, fmt.Sprintf("Missing %q file", field), err)
	}
	return file, header, nil
}

// IsImage reports whether the part declares an image content type.
func IsImage(header *multipart.FileHeader) bool {
	return strings.HasPrefix(header.Header.Get("Content-Type"), "image/")
}
