package service

import (
	"io"
	"mime/multipart"
	"os"
)

// saveUploadedFile copies a multipart upload to dst. Same behavior as
// gin's SaveUploadedFile, kept here so the service doesn't depend on
// gin.
func saveUploadedFile(header *multipart.FileHeader, dst string) error {
	src, err := header.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, src)
	return err
}
