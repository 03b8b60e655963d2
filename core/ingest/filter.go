package ingest

import (
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"DevAmp/logger"
	"DevAmp/model"
)

// audioTypes maps common audio extensions to their MIME types. The platform
// tables are consulted only for extensions missing here.
var audioTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".wave": "audio/wav",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".opus": "audio/ogg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".weba": "audio/webm",
	".aif":  "audio/aiff",
	".aiff": "audio/aiff",
	".mid":  "audio/midi",
}

// MIMEType resolves the media type of path from its extension, falling back
// to sniffing the first 512 bytes.
func MIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := audioTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}

	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return ""
	}
	return http.DetectContentType(head[:n])
}

// IsAudio reports whether a media type is audio/*.
func IsAudio(mimeType string) bool {
	return strings.HasPrefix(mimeType, "audio/")
}

// FilterAudio turns paths into tracks, keeping regular files of an audio
// type in the given order.
func FilterAudio(paths []string) []*model.Track {
	var out []*model.Track
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			logger.Warn("skipping unreadable file", logger.String("path", p), logger.ErrorField(err))
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		mt := MIMEType(p)
		if !IsAudio(mt) {
			logger.Debug("skipping non-audio file", logger.String("path", p), logger.String("mime", mt))
			continue
		}
		out = append(out, model.NewTrack(p, info.Size(), mt))
	}
	return out
}

// Scan walks dir and returns its audio files as tracks, sorted by path.
func Scan(dir string) ([]*model.Track, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return FilterAudio(paths), nil
}
