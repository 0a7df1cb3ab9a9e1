package blob

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Resource types assigned by automatic detection.
const (
	ResourceImage = "image"
	ResourceVideo = "video"
	ResourceRaw   = "raw"
)

const octetStream = "application/octet-stream"

// Resource is the outcome of content sniffing.
type Resource struct {
	Type        string
	Format      string
	ContentType string
}

// Detect sniffs data to classify an upload. The declared content type and the
// filename extension are used only when the bytes are not recognised.
func Detect(data []byte, declaredType, filename string) Resource {
	detected := mimetype.Detect(data)
	contentType := detected.String()
	format := detected.Extension()

	if detected.Is(octetStream) {
		if declared := strings.TrimSpace(declaredType); declared != "" {
			contentType = declared
		}
		format = filepath.Ext(filename)
	}
	if format == "" {
		format = filepath.Ext(filename)
	}

	return Resource{
		Type:        classify(contentType),
		Format:      strings.TrimPrefix(strings.ToLower(format), "."),
		ContentType: contentType,
	}
}

func classify(contentType string) string {
	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return ResourceImage
	case strings.HasPrefix(mediaType, "video/"), strings.HasPrefix(mediaType, "audio/"):
		return ResourceVideo
	default:
		return ResourceRaw
	}
}
