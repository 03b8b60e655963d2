package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"DevAmp/model"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestMIMEType(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"song.mp3", nil, "audio/mpeg"},
		{"SONG.FLAC", nil, "audio/flac"},
		{"take.wav", nil, "audio/wav"},
		{"clip.ogg", nil, "audio/ogg"},
		{"voice.m4a", nil, "audio/mp4"},
		// no extension: sniffed from an ID3 header
		{"noext", append([]byte("ID3"), make([]byte, 32)...), "audio/mpeg"},
	}
	for _, tt := range tests {
		p := writeFile(t, dir, tt.name, tt.data)
		if got := MIMEType(p); got != tt.want {
			t.Errorf("MIMEType(%s) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestFilterAudio(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.mp3", make([]byte, 2048))
	txt := writeFile(t, dir, "notes.txt", []byte("hello"))
	b := writeFile(t, dir, "b.wav", make([]byte, 10))
	missing := filepath.Join(dir, "gone.mp3")

	got := FilterAudio([]string{a, txt, missing, dir, b})
	if len(got) != 2 {
		t.Fatalf("FilterAudio kept %d files, want 2", len(got))
	}
	if got[0].Name != "a.mp3" || got[1].Name != "b.wav" {
		t.Errorf("order = [%s %s], want insertion order", got[0].Name, got[1].Name)
	}
	if got[0].Size != 2048 || got[0].MIMEType != "audio/mpeg" || got[0].Path != a {
		t.Errorf("track = %+v", got[0])
	}
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "album")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "b.mp3", nil)
	writeFile(t, sub, "a.flac", nil)
	writeFile(t, dir, "cover.jpg", nil)

	got, err := Scan(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("Scan found %d tracks, want 2", len(got))
	}
	if got[0].Name != "a.flac" {
		t.Errorf("first track = %s, want a.flac (sorted by path)", got[0].Name)
	}

	if _, err := Scan(filepath.Join(dir, "missing")); err == nil {
		t.Error("Scan of a missing directory should fail")
	}
}

func TestWatcherAddsNewAudio(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "old.mp3", nil)

	added := make(chan []*model.Track, 4)
	w, err := NewWatcher(dir, func(ts []*model.Track) { added <- ts })
	if err != nil {
		t.Fatal(err)
	}
	w.settle = 20 * time.Millisecond
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	writeFile(t, dir, "readme.txt", []byte("x"))
	writeFile(t, dir, "new.mp3", make([]byte, 64))

	select {
	case ts := <-added:
		if len(ts) != 1 || ts[0].Name != "new.mp3" {
			t.Errorf("added %v, want [new.mp3]", ts)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not report the new file")
	}

	// rewriting a known file must not add it again
	writeFile(t, dir, "old.mp3", make([]byte, 8))
	writeFile(t, dir, "new.mp3", make([]byte, 128))
	select {
	case ts := <-added:
		t.Errorf("known files re-added: %v", ts)
	case <-time.After(300 * time.Millisecond):
	}
}
