// Package fileconv normalizes attachment MIME types to the set the
// automation endpoint's document loader accepts. Unsupported text-like
// formats are relabeled as plain text (with a matching filename extension)
// so the endpoint can still ingest them.
package fileconv

import "strings"

// supportedMimeTypes are accepted by the endpoint's document loader as-is.
var supportedMimeTypes = map[string]bool{
	"text/plain": true,
	"text/csv":   true,
	"text/html":  true,

	"application/pdf": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       true,
	"application/vnd.oasis.opendocument.text":                                 true,

	"application/json": true,
}

// mimeConversions maps unsupported types to the supported type they are
// relabeled as.
var mimeConversions = map[string]string{
	"text/markdown":   "text/plain",
	"text/x-markdown": "text/plain",

	"application/msword":       "text/plain",
	"application/vnd.ms-excel": "text/plain",

	"text/x-python":          "text/plain",
	"text/x-java":            "text/plain",
	"text/x-c":               "text/plain",
	"text/x-c++":             "text/plain",
	"application/javascript": "text/plain",
	"application/typescript": "text/plain",
	"text/x-sh":              "text/plain",

	"application/x-yaml": "text/plain",
	"text/yaml":          "text/plain",
	"application/toml":   "text/plain",
	"text/x-toml":        "text/plain",
	"application/xml":    "text/plain",
	"text/xml":           "text/plain",

	"text/x-rst": "text/plain",
	"text/x-tex": "text/plain",
}

// extensionMimeTypes is the filename fallback when no MIME type was declared.
var extensionMimeTypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".txt":      "text/plain",
	".pdf":      "application/pdf",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".doc":      "application/msword",
	".xlsx":     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xls":      "application/vnd.ms-excel",
	".csv":      "text/csv",
	".json":     "application/json",
	".html":     "text/html",
	".htm":      "text/html",
	".py":       "text/x-python",
	".js":       "application/javascript",
	".ts":       "application/typescript",
	".java":     "text/x-java",
	".c":        "text/x-c",
	".cpp":      "text/x-c++",
	".yaml":     "application/x-yaml",
	".yml":      "application/x-yaml",
	".toml":     "application/toml",
	".xml":      "application/xml",
	".sh":       "text/x-sh",
}

var mimeExtensions = map[string]string{
	"text/plain":       ".txt",
	"text/csv":         ".csv",
	"application/pdf":  ".pdf",
	"application/json": ".json",
	"text/html":        ".html",
}

// Result describes a normalized attachment identity.
type Result struct {
	Filename string
	MimeType string
	// Converted is true when the MIME type was relabeled; the caller then
	// forwards the original identity alongside.
	Converted bool
}

// Normalize maps a declared MIME type and filename to an endpoint-supported
// identity. Supported types pass through untouched. Types with no known
// conversion fall back to plain text when they look text-based; otherwise
// they are forwarded unchanged and left for the endpoint to reject.
func Normalize(mimeType, filename string) Result {
	if mimeType == "" {
		mimeType = MimeFromFilename(filename)
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
	}

	if supportedMimeTypes[mimeType] {
		return Result{Filename: filename, MimeType: mimeType}
	}

	if converted, ok := mimeConversions[mimeType]; ok {
		return Result{
			Filename:  renameForMime(filename, converted),
			MimeType:  converted,
			Converted: true,
		}
	}

	// Declared type unknown: retry the conversion table via the extension.
	if fromName := MimeFromFilename(filename); fromName != "" {
		if converted, ok := mimeConversions[fromName]; ok {
			return Result{
				Filename:  renameForMime(filename, converted),
				MimeType:  converted,
				Converted: true,
			}
		}
	}

	if strings.HasPrefix(mimeType, "text/") ||
		strings.Contains(strings.ToLower(mimeType), "text") ||
		mimeType == "application/octet-stream" {
		return Result{
			Filename:  renameForMime(filename, "text/plain"),
			MimeType:  "text/plain",
			Converted: true,
		}
	}

	return Result{Filename: filename, MimeType: mimeType}
}

// MimeFromFilename resolves a MIME type from the filename extension,
// or "" when the extension is unknown.
func MimeFromFilename(filename string) string {
	lower := strings.ToLower(filename)
	for ext, mime := range extensionMimeTypes {
		if strings.HasSuffix(lower, ext) {
			return mime
		}
	}
	return ""
}

// renameForMime swaps the filename extension to match the target MIME type.
func renameForMime(filename, targetMime string) string {
	base := filename
	if idx := strings.LastIndex(filename, "."); idx >= 0 {
		base = filename[:idx]
	}
	ext, ok := mimeExtensions[targetMime]
	if !ok {
		ext = ".txt"
	}
	return base + ext
}
