package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"pharmacist/internal/config"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// MaxChatImageSize is the largest image accepted with a chat message
const MaxChatImageSize = 5 << 20

var allowedImageTypes = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// ImageUploader stores chat images and returns their public URL
type ImageUploader interface {
	UploadChatImage(ctx context.Context, file io.Reader, filename string, userID uint) (url string, publicID string, err error)
	DeleteImage(ctx context.Context, publicID string) error
}

type ImageService struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewImageService returns ErrDisabled when Cloudinary is not configured
func NewImageService(cfg config.CloudinaryConfig) (*ImageService, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, ErrDisabled
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}

	return &ImageService{cld: cld, folder: cfg.Folder}, nil
}

// UploadChatImage uploads an image attached to a chat message
func (s *ImageService) UploadChatImage(ctx context.Context, file io.Reader, filename string, userID uint) (string, string, error) {
	publicID := fmt.Sprintf("user_%d/%s", userID, uuid.NewString())

	uploadParams := uploader.UploadParams{
		PublicID:       publicID,
		Folder:         s.folder,
		ResourceType:   "image",
		Transformation: "c_limit,h_1600,w_1600/q_auto",
	}

	result, err := s.cld.Upload.Upload(ctx, file, uploadParams)
	if err != nil {
		return "", "", fmt.Errorf("failed to upload image: %w", err)
	}
	if result.Error.Message != "" {
		return "", "", fmt.Errorf("failed to upload image: %s", result.Error.Message)
	}

	return result.SecureURL, result.PublicID, nil
}

// DeleteImage removes an uploaded image
func (s *ImageService) DeleteImage(ctx context.Context, publicID string) error {
	_, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID: publicID,
	})
	return err
}

// ValidateImageFile checks the extension and size of an uploaded image
func ValidateImageFile(header *multipart.FileHeader) error {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedImageTypes[ext] {
		return invalidField("uploaded_image", fmt.Sprintf("invalid file type: %s. Allowed types: jpg, jpeg, png, gif, webp", ext))
	}

	if header.Size > MaxChatImageSize {
		return invalidField("uploaded_image", fmt.Sprintf("file too large: %d bytes (max %d bytes)", header.Size, MaxChatImageSize))
	}

	return nil
}
