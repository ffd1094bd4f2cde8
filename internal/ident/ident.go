// Package ident generates job ids, point ids, upload file names, and chunk content hashes.
package ident

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// NewJobID returns a fresh 32-character hex id.
func NewJobID() string {
	return hexUUID()
}

// NewPointID returns a fresh canonical UUID string, accepted by every vector backend.
func NewPointID() string {
	return uuid.New().String()
}

// ContentHash returns the hex SHA-256 of salt followed by text.
// Same salt and text always yield the same hash.
func ContentHash(salt, text string) string {
	h := sha256.New()
	h.Write([]byte(salt))
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// UploadName returns a unique on-disk name for an uploaded file. Directory
// components in filename are dropped so the result never escapes its directory.
func UploadName(filename string) string {
	base := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(filename, "\\", "/")))
	if base == "/" || base == "." {
		base = "upload"
	}
	return hexUUID() + "_" + base
}

// DefaultFilename is used when an upload carries no name.
func DefaultFilename() string {
	return "upload_" + hexUUID()
}

func hexUUID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
