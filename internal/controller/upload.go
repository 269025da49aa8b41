package controller

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"mushtrack/internal/models"
)

// MaxPhotoBytes is the largest accepted photo upload.
const MaxPhotoBytes = 10 << 20

// Form fields besides the photo get this much extra room.
const maxFormOverhead = 1 << 20

var errPhotoTooLarge = errors.New("photo exceeds the 10 MiB upload limit")

// parseMultipart limits the request body and parses a multipart form.
func parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxPhotoBytes+maxFormOverhead)
	err := r.ParseMultipartForm(MaxPhotoBytes + maxFormOverhead)
	if errors.Is(err, http.ErrNotMultipart) {
		// url-encoded forms carry no photo
		return nil
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errPhotoTooLarge
		}
		return fmt.Errorf("invalid form: %w", err)
	}
	return nil
}

// readPhoto returns the uploaded file in field, or nil when none was sent.
// The form must already be parsed.
func readPhoto(r *http.Request, field string) (*models.Photo, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading photo: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxPhotoBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading photo: %w", err)
	}
	if len(data) > MaxPhotoBytes {
		return nil, errPhotoTooLarge
	}
	return models.NewPhoto(header.Filename, data), nil
}
