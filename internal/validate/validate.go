// Package validate holds the input checks that gin's binding tags can't
// express: phone formats and treatment image uploads.
package validate

import (
	"mime/multipart"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ajaykumarbhatane/dental-management/internal/apperr"
)

// Accepts +1234567890, 123-456-7890 and (123) 456-7890 style numbers.
var phonePattern = regexp.MustCompile(`^(\+\d{1,3})?[-.\s]?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}$`)

// PhoneNumber checks the format of a phone number. Empty is allowed —
// required-ness is the binding layer's job.
func PhoneNumber(field, value string) error {
	if value == "" {
		return nil
	}
	if !phonePattern.MatchString(value) {
		return apperr.ValidationField(field, "please provide a valid phone number")
	}
	return nil
}

// MaxImageSize is the upload limit for treatment images.
const MaxImageSize = 5 << 20 // 5 MB

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// TreatmentImage checks an uploaded treatment image: extension and size.
func TreatmentImage(header *multipart.FileHeader) error {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedImageExts[ext] {
		return apperr.ValidationField("image", "invalid image format, allowed: jpg, jpeg, png, gif, webp")
	}
	if header.Size > MaxImageSize {
		return apperr.ValidationField("image", "image file size cannot exceed 5MB")
	}
	return nil
}
