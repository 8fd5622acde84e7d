package imageopt

import (
	"path/filepath"
	"strings"
)

// Codec identifies the image format a file is dispatched to.
type Codec int

const (
	CodecNone Codec = iota
	CodecJPEG
	CodecPNG
	CodecGIF
	CodecWebP
	CodecAVIF
	CodecJXL
)

// Capability is what the optimizer can do for a codec.
type Capability int

const (
	// CapabilityNone means the file is not an image the optimizer knows.
	CapabilityNone Capability = iota
	// CapabilityReencode means the content is decoded and re-encoded.
	CapabilityReencode
	// CapabilityPassThrough means the format is recognized but no encoder is
	// available, so content is returned as is.
	CapabilityPassThrough
)

var codecByExtension = map[string]Codec{
	".jpg":  CodecJPEG,
	".jpeg": CodecJPEG,
	".png":  CodecPNG,
	".gif":  CodecGIF,
	".webp": CodecWebP,
	".avif": CodecAVIF,
	".jxl":  CodecJXL,
}

// CodecFor selects a codec by file extension, case-insensitively.
func CodecFor(path string) Codec {
	return codecByExtension[strings.ToLower(filepath.Ext(path))]
}

// Capability reports how the optimizer treats c.
func (c Codec) Capability() Capability {
	switch c {
	case CodecJPEG, CodecPNG, CodecGIF:
		return CapabilityReencode
	case CodecWebP, CodecAVIF, CodecJXL:
		return CapabilityPassThrough
	default:
		return CapabilityNone
	}
}

func (c Codec) String() string {
	switch c {
	case CodecJPEG:
		return "jpeg"
	case CodecPNG:
		return "png"
	case CodecGIF:
		return "gif"
	case CodecWebP:
		return "webp"
	case CodecAVIF:
		return "avif"
	case CodecJXL:
		return "jxl"
	default:
		return "none"
	}
}
