package main

import (
	"fmt"
	"log"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// upload folders below UPLOAD_BASE
const (
	folderContributions = "contributions"
	folderResidentKK    = "resident/kk"
	folderResidentPic   = "resident/pic"
)

// saveUpload stores file under <UPLOAD_BASE>/<folder>/<rtID>/ with a unique
// name and returns the public path (/uploads/...).
func saveUpload(c *gin.Context, file *multipart.FileHeader, folder string, rtID uuid.UUID) (string, error) {
	if cfg.UploadMaxBytes > 0 && file.Size > cfg.UploadMaxBytes {
		return "", badRequest(fmt.Sprintf("file too large (max %d bytes)", cfg.UploadMaxBytes))
	}
	name := uuid.NewString() + "_" + cleanFileName(file.Filename)
	relDir := path.Join(folder, rtID.String())
	absDir := filepath.Join(uploadBaseDir(), filepath.FromSlash(relDir))
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", absDir, err)
	}
	if err := c.SaveUploadedFile(file, filepath.Join(absDir, name)); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return "/uploads/" + path.Join(relDir, name), nil
}

// saveImageUpload stores an image and shrinks it to fit PIC_MAX_DIMENSION.
func saveImageUpload(c *gin.Context, file *multipart.FileHeader, folder string, rtID uuid.UUID) (string, error) {
	public, err := saveUpload(c, file, folder, rtID)
	if err != nil {
		return "", err
	}
	if err := shrinkImage(uploadFilePath(public), cfg.PicMaxDimension); err != nil {
		// keep the original when it cannot be decoded
		log.Printf("shrink %s: %v", public, err)
	}
	return public, nil
}

// shrinkImage downsizes the image at p in place so that neither side exceeds maxDim.
func shrinkImage(p string, maxDim int) error {
	if maxDim <= 0 {
		return nil
	}
	img, err := imaging.Open(p, imaging.AutoOrientation(true))
	if err != nil {
		return err
	}
	b := img.Bounds()
	if b.Dx() <= maxDim && b.Dy() <= maxDim {
		return nil
	}
	img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	return imaging.Save(img, p)
}

// deleteUpload removes a file previously returned by saveUpload. Paths outside
// the upload base are ignored.
func deleteUpload(public string) {
	p := uploadFilePath(public)
	if p == "" {
		return
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to remove upload %s: %v", p, err)
	}
}

// uploadFilePath maps a public /uploads/... path to the file on disk.
func uploadFilePath(public string) string {
	rel := strings.TrimPrefix(strings.TrimSpace(public), "/")
	if !strings.HasPrefix(rel, "uploads/") {
		return ""
	}
	clean := path.Clean("/" + strings.TrimPrefix(rel, "uploads/"))
	if clean == "/" {
		return ""
	}
	if strings.HasPrefix(clean, "/default/") {
		return ""
	}
	return filepath.Join(uploadBaseDir(), filepath.FromSlash(strings.TrimPrefix(clean, "/")))
}

func cleanFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
	if name == "" || name == "." || name == "_" {
		return "file"
	}
	return name
}
