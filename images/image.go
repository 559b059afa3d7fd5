// Package images - Matrix conversion and crop output helpers.
package images

import "strings"

// ImageFormat represents supported output image formats
type ImageFormat string

// ImageFormat constants
const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
)

// Extension returns the file extension written for the format, including the
// leading dot. JPEG crops keep the upper-case extension of the crossarm
// dataset.
func (f ImageFormat) Extension() string {
	switch ImageFormat(strings.ToLower(string(f))) {
	case FormatPNG:
		return ".png"
	default:
		return ".JPG"
	}
}
