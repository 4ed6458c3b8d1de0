// Package filemgr stores uploaded product images under static/uploads and
// derives the catalog thumbnail for each one.
package filemgr

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const (
	uploadDir    = "static/uploads/products"
	thumbDir     = "static/uploads/products/thumbs"
	maxUploadMem = 10 << 20

	maxImageWidth = 1200
	thumbWidth    = 300
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

func allowedMIME(mimeType string) bool {
	switch mimeType {
	case "image/jpeg", "image/png", "image/webp":
		return true
	}
	return false
}

// SaveProductImage reads the named multipart field, validates it, and
// writes the full-size image plus a thumbnail. Both returned paths are
// URL paths relative to the static file root.
func SaveProductImage(r *http.Request, field string) (imagePath, thumbPath string, err error) {
	if err := r.ParseMultipartForm(maxUploadMem); err != nil {
		return "", "", fmt.Errorf("invalid multipart form: %w", err)
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", "", fmt.Errorf("missing file field %q: %w", field, err)
	}
	defer file.Close()

	return saveImage(file, header)
}

func saveImage(file multipart.File, header *multipart.FileHeader) (string, string, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		return "", "", fmt.Errorf("file extension %q not allowed", ext)
	}
	if ct := header.Header.Get("Content-Type"); ct != "" && !allowedMIME(ct) {
		return "", "", fmt.Errorf("content type %q not allowed", ct)
	}

	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		return "", "", fmt.Errorf("decode image: %w", err)
	}

	// Re-encoding through imaging also drops any EXIF payload.
	if img.Bounds().Dx() > maxImageWidth {
		img = imaging.Resize(img, maxImageWidth, 0, imaging.Lanczos)
	}
	thumb := imaging.Resize(img, thumbWidth, 0, imaging.Lanczos)

	for _, dir := range []string{uploadDir, thumbDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", "", fmt.Errorf("create upload dir: %w", err)
		}
	}

	name := uuid.NewString() + ".jpg"
	imageFile := filepath.Join(uploadDir, name)
	thumbFile := filepath.Join(thumbDir, name)

	if err := imaging.Save(img, imageFile, imaging.JPEGQuality(90)); err != nil {
		return "", "", fmt.Errorf("save image: %w", err)
	}
	if err := imaging.Save(thumb, thumbFile, imaging.JPEGQuality(85)); err != nil {
		os.Remove(imageFile)
		return "", "", fmt.Errorf("save thumbnail: %w", err)
	}

	return "/" + filepath.ToSlash(imageFile), "/" + filepath.ToSlash(thumbFile), nil
}

// RemoveProductImage deletes a stored image and its thumbnail; missing
// files are ignored.
func RemoveProductImage(imagePath string) {
	if imagePath == "" {
		return
	}
	rel := strings.TrimPrefix(imagePath, "/")
	if !strings.HasPrefix(rel, uploadDir) {
		return
	}
	os.Remove(rel)
	os.Remove(filepath.Join(thumbDir, filepath.Base(rel)))
}
