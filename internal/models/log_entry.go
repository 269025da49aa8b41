package models

import "net/http"

// Photo is an uploaded JPEG or PNG image.
type Photo struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// Accepted photo content types, as reported by http.DetectContentType.
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
)

// NewPhoto sniffs the content type of data and returns nil for empty uploads.
func NewPhoto(filename string, data []byte) *Photo {
	if len(data) == 0 {
		return nil
	}
	return &Photo{
		Filename:    filename,
		ContentType: http.DetectContentType(data),
		Data:        data,
	}
}

// IsImage reports whether the photo is one of the accepted image types.
func (p *Photo) IsImage() bool {
	if p == nil {
		return false
	}
	return p.ContentType == ContentTypeJPEG || p.ContentType == ContentTypePNG
}

// LogEntry is one growth observation. Entries have no identity beyond their
// position in the session log.
type LogEntry struct {
	Date        Date        `json:"date"`
	Temperature float64     `json:"temperature"`
	Humidity    float64     `json:"humidity"`
	Stage       GrowthStage `json:"stage"`
	Notes       string      `json:"notes"`
	Photo       *Photo      `json:"photo,omitempty"`
}

// HasPhoto reports whether a photo was attached.
func (e LogEntry) HasPhoto() bool {
	return e.Photo != nil && len(e.Photo.Data) > 0
}
