package validation

import (
	"encoding/base64"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxPhotoBytes is the largest accepted upload.
const MaxPhotoBytes = 2 * 1024 * 1024

const (
	MsgPhotoType = "Only JPG or PNG images are accepted"
	MsgPhotoSize = "Photo must be 2MB or smaller"
)

// Photo is an uploaded image. ContentType may be empty, in which case the bytes are sniffed.
type Photo struct {
	FileName    string
	ContentType string
	Size        int64
	Data        []byte
}

// PhotoResult carries the gate outcome and, for an accepted photo, a displayable data URL.
type PhotoResult struct {
	Valid      bool   `json:"valid"`
	Message    string `json:"message,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
	PreviewURL string `json:"previewUrl,omitempty"`
}

// CheckPhoto accepts an absent photo, or a JPEG/PNG of at most MaxPhotoBytes.
func CheckPhoto(p *Photo) PhotoResult {
	if p == nil {
		return PhotoResult{Valid: true}
	}

	mt := declaredType(p.ContentType)
	if mt == "" || mt == "application/octet-stream" {
		mt = mimetype.Detect(p.Data).String()
		if base, _, err := mime.ParseMediaType(mt); err == nil {
			mt = base
		}
	}
	if mt != "image/jpeg" && mt != "image/png" {
		return PhotoResult{Message: MsgPhotoType}
	}

	size := p.Size
	if size <= 0 {
		size = int64(len(p.Data))
	}
	if size > MaxPhotoBytes {
		return PhotoResult{Message: MsgPhotoSize, MimeType: mt}
	}

	return PhotoResult{
		Valid:      true,
		MimeType:   mt,
		PreviewURL: "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(p.Data),
	}
}

func declaredType(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	base, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(raw)
	}
	return strings.ToLower(base)
}
