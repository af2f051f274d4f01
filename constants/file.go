package constants

import "strings"

// Upload intake limits. The HTTP layer enforces these before the batch
// processor ever sees a file.
const (
	MaxFilesPerBatch = 10
	MaxFileSizeBytes = 10 * 1024 * 1024
)

// AllowedExtensions holds the file extensions accepted for invoice uploads.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"tiff": {},
	"bmp":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedFile reports whether the file name carries an accepted extension.
func IsAllowedFile(fileName string) bool {
	i := strings.LastIndex(fileName, ".")
	if i < 0 {
		return false
	}
	_, ok := AllowedExtensions[NormalizeExt(fileName[i:])]
	return ok
}

// MimeTypeFor maps a file name to the MIME type sent to vision providers.
func MimeTypeFor(fileName string) string {
	i := strings.LastIndex(fileName, ".")
	if i < 0 {
		return "application/octet-stream"
	}
	switch NormalizeExt(fileName[i:]) {
	case "pdf":
		return "application/pdf"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "tiff":
		return "image/tiff"
	case "bmp":
		return "image/bmp"
	default:
		return "application/octet-stream"
	}
}
