package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// ErrUnsupportedFormat is returned for files no decoder claims.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

const (
	extMP3  = ".mp3"
	extWAV  = ".wav"
	extWAVE = ".wave"
	extFLAC = ".flac"
	extOGG  = ".ogg"
	extOGA  = ".oga"
)

// decoded bundles the resources held for one loaded track.
type decoded struct {
	file     *os.File
	streamer beep.StreamSeekCloser
	format   beep.Format
}

func (d *decoded) Close() {
	if d.streamer != nil {
		d.streamer.Close()
	}
	if d.file != nil {
		d.file.Close()
	}
}

// Supported reports whether a decoder exists for the file's extension.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case extMP3, extWAV, extWAVE, extFLAC, extOGG, extOGA:
		return true
	}
	return false
}

// decodeFile opens path and picks a decoder by extension.
func decodeFile(path string) (*decoded, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !Supported(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}

	var (
		s      beep.StreamSeekCloser
		format beep.Format
	)
	switch ext {
	case extMP3:
		s, format, err = mp3.Decode(f)
	case extWAV, extWAVE:
		s, format, err = wav.Decode(f)
	case extFLAC:
		s, format, err = flac.Decode(f)
	case extOGG, extOGA:
		s, format, err = vorbis.Decode(f)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return &decoded{file: f, streamer: s, format: format}, nil
}
