package entity

import "strings"

// ImageKind discriminates the ImageRef variants.
type ImageKind int

const (
	ImageAbsent ImageKind = iota
	ImageRawBytes
	ImageDataURI
	ImageBase64
	ImageFilePath
)

func (k ImageKind) String() string {
	switch k {
	case ImageRawBytes:
		return "raw_bytes"
	case ImageDataURI:
		return "data_uri"
	case ImageBase64:
		return "base64"
	case ImageFilePath:
		return "file_path"
	default:
		return "absent"
	}
}

// ImageRef references a screenshot. Exactly one of Bytes or Value is set,
// depending on Kind.
type ImageRef struct {
	Kind  ImageKind
	Bytes []byte
	Value string
}

// NoImage is the absent reference.
var NoImage = ImageRef{Kind: ImageAbsent}

// ImageFromBytes wraps encoded image bytes.
func ImageFromBytes(b []byte) ImageRef {
	if len(b) == 0 {
		return NoImage
	}
	return ImageRef{Kind: ImageRawBytes, Bytes: b}
}

// ImageFromPath references an image file on local disk.
func ImageFromPath(path string) ImageRef {
	if strings.TrimSpace(path) == "" {
		return NoImage
	}
	return ImageRef{Kind: ImageFilePath, Value: path}
}

// ParseImageRef classifies a string reference. Data URIs are recognised by
// their "data:image" prefix. Anything else is a file path when allowPaths is
// set (decoders fall back to base64 when no such file exists) and base64
// otherwise. Callers handling untrusted input must pass allowPaths=false.
func ParseImageRef(s string, allowPaths bool) ImageRef {
	v := strings.TrimSpace(s)
	switch {
	case v == "":
		return NoImage
	case strings.HasPrefix(v, "data:image"):
		return ImageRef{Kind: ImageDataURI, Value: v}
	case allowPaths:
		return ImageRef{Kind: ImageFilePath, Value: v}
	default:
		return ImageRef{Kind: ImageBase64, Value: v}
	}
}

// IsAbsent reports whether the reference carries no image.
func (r ImageRef) IsAbsent() bool {
	return r.Kind == ImageAbsent
}
