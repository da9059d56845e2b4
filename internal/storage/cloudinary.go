package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Uploader pushes a local file to object storage and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, localPath, publicID string) (string, error)
}

type CloudinaryUploader struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryUploader(cloudinaryURL, folder string) (*CloudinaryUploader, error) {
	if cloudinaryURL == "" {
		return nil, errors.New("cloudinary url is empty")
	}
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	return &CloudinaryUploader{cld: cld, folder: folder}, nil
}

func (u *CloudinaryUploader) Upload(ctx context.Context, localPath, publicID string) (string, error) {
	rt := resourceType(localPath)
	// raw assets keep their extension in the public id, images get it from format
	if rt == "raw" {
		publicID += strings.ToLower(filepath.Ext(localPath))
	}
	resp, err := u.cld.Upload.Upload(ctx, localPath, uploader.UploadParams{
		PublicID:     publicID,
		Folder:       u.folder,
		ResourceType: rt,
		Overwrite:    api.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", filepath.Base(localPath), err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("upload %s: %s", filepath.Base(localPath), resp.Error.Message)
	}
	return resp.SecureURL, nil
}

// Images go through the image pipeline; PDF and XML are stored verbatim.
func resourceType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".webp":
		return "image"
	}
	return "raw"
}
