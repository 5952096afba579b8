// Package media classifies downloaded payloads by container format using
// leading-byte signatures and validates candidate files before they are
// committed to the cache.
package media

import (
	"bytes"
	"net/url"
	"path"
	"strings"
)

// Kind is the coarse media classification stored in cache metadata.
type Kind string

const (
	KindImage   Kind = "image"
	KindVideo   Kind = "video"
	KindUnknown Kind = "unknown"
)

// sniffLen covers the longest signature we check (RIFF/ftyp need 12 bytes).
const sniffLen = 12

// minUnknownBytes is the size floor for payloads with no recognizable
// signature. Anything smaller is treated as corrupt; anything larger is
// accepted so less-common codecs are not rejected outright.
const minUnknownBytes = 1024

var (
	imageExts = map[string]Kind{
		".jpg": KindImage, ".jpeg": KindImage, ".png": KindImage,
		".gif": KindImage, ".webp": KindImage,
	}
	videoExts = map[string]Kind{
		".mp4": KindVideo, ".mov": KindVideo, ".avi": KindVideo,
		".webm": KindVideo, ".m4v": KindVideo,
	}

	contentTypeExts = map[string]string{
		"image/jpeg":      ".jpg",
		"image/png":       ".png",
		"image/gif":       ".gif",
		"image/webp":      ".webp",
		"video/mp4":       ".mp4",
		"video/quicktime": ".mov",
		"video/webm":      ".webm",
	}
)

// Sniff classifies head by its leading bytes. head may be shorter than
// sniffLen; unrecognized or truncated signatures yield KindUnknown.
func Sniff(head []byte) Kind {
	switch {
	case bytes.HasPrefix(head, []byte{0xFF, 0xD8, 0xFF}):
		return KindImage // JPEG
	case bytes.HasPrefix(head, []byte{0x89, 'P', 'N', 'G'}):
		return KindImage
	case bytes.HasPrefix(head, []byte("GIF8")):
		return KindImage
	case bytes.HasPrefix(head, []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return KindVideo // EBML: WebM / Matroska
	case bytes.HasPrefix(head, []byte("RIFF")) && len(head) >= 12:
		switch string(head[8:12]) {
		case "WEBP":
			return KindImage
		case "AVI ":
			return KindVideo
		}

		return KindUnknown
	case len(head) >= 8 && string(head[4:8]) == "ftyp":
		return KindVideo // ISO BMFF: MP4 / MOV / M4V
	}

	return KindUnknown
}

// ExtensionForURL returns the lowercased extension of the URL path when it is
// a recognized image or video extension, or "" otherwise.
func ExtensionForURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	ext := strings.ToLower(path.Ext(u.Path))
	if _, ok := imageExts[ext]; ok {
		return ext
	}

	if _, ok := videoExts[ext]; ok {
		return ext
	}

	return ""
}

// ExtensionForContentType maps an HTTP Content-Type to a file extension,
// defaulting to ".bin" for anything unrecognized.
func ExtensionForContentType(contentType string) string {
	ct := strings.TrimSpace(strings.ToLower(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}

	if ext, ok := contentTypeExts[ct]; ok {
		return ext
	}

	return ".bin"
}

// ResolveKind picks the kind recorded in cache metadata: the sniffed kind
// when known, then the caller's declared kind, then the extension, and
// finally image as the catch-all.
func ResolveKind(sniffed, declared Kind, ext string) Kind {
	if sniffed != KindUnknown {
		return sniffed
	}

	if declared == KindImage || declared == KindVideo {
		return declared
	}

	if k, ok := videoExts[ext]; ok {
		return k
	}

	return KindImage
}
