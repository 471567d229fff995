package avatars

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// uploaded avatars are normalized to a fixed square dimension
const avatarSize = 250

var ErrUnsupportedImage = errors.New("unsupported image type")

// DefaultURL builds a gravatar URL for a fresh account, falling back to a
// generated robohash image when the email has no gravatar.
func DefaultURL(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	sum := md5.Sum([]byte(normalized))

	return "https://s.gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?d=robohash"
}

// Store resizes uploaded images and persists them under a public
// static directory.
type Store struct {
	dir           string
	publicBaseURL string
}

func NewStore(dir, publicBaseURL string) *Store {
	return &Store{
		dir:           dir,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}
}

// Dir reports the directory served as /avatars.
func (s *Store) Dir() string {
	return s.dir
}

// Save decodes the uploaded image, resizes it to a fixed square, writes it
// as <userID>_avatar.<ext> and returns the public URL for the stored file.
func (s *Store) Save(userID string, upload io.Reader, contentType string) (string, error) {
	ext, ok := extensionFor(contentType)

	if !ok {
		return "", ErrUnsupportedImage
	}

	img, err := imaging.Decode(upload)

	if err != nil {
		return "", fmt.Errorf("decode avatar: %w", err)
	}

	resized := imaging.Resize(img, avatarSize, avatarSize, imaging.Lanczos)

	err = os.MkdirAll(s.dir, 0o755)

	if err != nil {
		return "", err
	}

	fileName := fmt.Sprintf("%s_avatar.%s", userID, ext)

	err = imaging.Save(resized, filepath.Join(s.dir, fileName))

	if err != nil {
		return "", fmt.Errorf("save avatar: %w", err)
	}

	return s.publicBaseURL + "/avatars/" + fileName, nil
}

func extensionFor(contentType string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/jpg":
		return "jpg", true
	case "image/png":
		return "png", true
	case "image/gif":
		return "gif", true
	default:
		return "", false
	}
}
