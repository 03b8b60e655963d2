package model

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Track represents a locally supplied audio file in the playlist.
// Tracks are immutable once added.
type Track struct {
	ID       string `json:"id"`
	Name     string `json:"name"`     // Display name, the file's base name
	Path     string `json:"-"`        // Local file path, never exposed to the UI
	Size     int64  `json:"size"`     // Size in bytes
	MIMEType string `json:"mimeType"` // audio/* type the file was accepted under
}

// NewTrack creates a track for the file at path.
func NewTrack(path string, size int64, mimeType string) *Track {
	return &Track{
		ID:       uuid.NewString(),
		Name:     filepath.Base(path),
		Path:     path,
		Size:     size,
		MIMEType: mimeType,
	}
}

// Title is the display name without its extension.
func (t *Track) Title() string {
	ext := filepath.Ext(t.Name)
	if ext == "" || ext == t.Name {
		return t.Name
	}
	return strings.TrimSuffix(t.Name, ext)
}

// SizeMB formats the size in mebibytes with two decimals.
func (t *Track) SizeMB() string {
	return fmt.Sprintf("%.2f MB", float64(t.Size)/1024/1024)
}
