package receipt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name string
		file string
		size int64
		want error
	}{
		{"png", "receipt.png", 1024, nil},
		{"jpg upper case", "SCAN.JPG", 1024, nil},
		{"jpeg", "photo.jpeg", MaxFileSize, nil},
		{"pdf rejected", "receipt.pdf", 1024, ErrUnsupportedFile},
		{"extension must be last", "receipt.png.exe", 1024, ErrUnsupportedFile},
		{"no extension", "receipt", 10, ErrUnsupportedFile},
		{"too large", "big.png", MaxFileSize + 1, ErrFileTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateFile(tt.file, tt.size), tt.want)
		})
	}
}

func TestValidateFile_Messages(t *testing.T) {
	assert.EqualError(t, ValidateFile("a.gif", 1), "Only JPG and PNG images are allowed.")
	assert.EqualError(t, ValidateFile("a.png", MaxFileSize+1), "Image must be 3 MB or less.")
}
