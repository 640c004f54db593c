// Package storage hosts user avatar images in S3-compatible object storage.
package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// AvatarUploader stores an image and returns a URL it can be fetched from.
type AvatarUploader interface {
	Upload(ctx context.Context, userID int64, data []byte, contentType string) (string, error)
}

// RandomAvatarKey returns a fresh object key under the user's prefix.
func RandomAvatarKey(userID int64) string {
	return fmt.Sprintf("avatars/%d/%v", userID, uuid.New())
}
