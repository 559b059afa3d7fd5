// Package util - Input discovery helpers.
package util

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ImageFile represents an image file found in an input directory.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Stem is the file name without its extension.
	Stem string
}

// supportedImageExtensions lists the extensions IsImageFile accepts, compared
// case-insensitively.
var supportedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
}

// ListImageFiles lists the image files of a directory, sorted by name.
// Subdirectories are not descended into.
//
// Arguments:
// - dir: Directory path containing image files.
//
// Returns:
// - []ImageFile: The images found.
// - error: Error if the directory cannot be read.
func ListImageFiles(dir string) ([]ImageFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var images []ImageFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !IsImageFile(name) {
			continue
		}

		images = append(images, ImageFile{
			Path: filepath.Join(dir, name),
			Stem: strings.TrimSuffix(name, filepath.Ext(name)),
		})
	}

	sort.Slice(images, func(i, j int) bool {
		return images[i].Path < images[j].Path
	})

	return images, nil
}

// IsImageFile reports whether path has a supported image extension.
func IsImageFile(path string) bool {
	return supportedImageExtensions[strings.ToLower(filepath.Ext(path))]
}
