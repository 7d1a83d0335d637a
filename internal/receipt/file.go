package receipt

import (
	"errors"
	"regexp"
)

// MaxFileSize is the largest accepted receipt image.
const MaxFileSize = 3 * 1024 * 1024

var (
	ErrUnsupportedFile = errors.New("Only JPG and PNG images are allowed.")
	ErrFileTooLarge    = errors.New("Image must be 3 MB or less.")
)

var imageName = regexp.MustCompile(`(?i)\.(png|jpe?g)$`)

// ValidateFile checks the receipt file name and size before upload.
func ValidateFile(name string, size int64) error {
	if !imageName.MatchString(name) {
		return ErrUnsupportedFile
	}
	if size > MaxFileSize {
		return ErrFileTooLarge
	}
	return nil
}
