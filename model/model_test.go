package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewTrack(t *testing.T) {
	tr := NewTrack("/music/Daft Punk - One More Time.mp3", 3*1024*1024, "audio/mpeg")
	if tr.ID == "" {
		t.Error("NewTrack should assign an ID")
	}
	if tr.Name != "Daft Punk - One More Time.mp3" {
		t.Errorf("Name = %q, want base name", tr.Name)
	}
	if got := tr.Title(); got != "Daft Punk - One More Time" {
		t.Errorf("Title() = %q, want extension stripped", got)
	}
	if got := tr.SizeMB(); got != "3.00 MB" {
		t.Errorf("SizeMB() = %q, want 3.00 MB", got)
	}
	other := NewTrack("/music/Daft Punk - One More Time.mp3", 1, "audio/mpeg")
	if other.ID == tr.ID {
		t.Error("two tracks with the same name must get distinct IDs")
	}
}

func TestTitleEdgeCases(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"song", "song"},
		{"song.tar.mp3", "song.tar"},
		{".hidden", ".hidden"},
	}
	for _, tt := range tests {
		tr := &Track{Name: tt.name}
		if got := tr.Title(); got != tt.want {
			t.Errorf("Title(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestVisualizerModeCycle(t *testing.T) {
	m := ModeBars
	want := []VisualizerMode{ModeWaveform, ModeRadial, ModeBars, ModeWaveform}
	for i, w := range want {
		m = m.Next()
		if m != w {
			t.Fatalf("step %d: mode = %v, want %v", i, m, w)
		}
	}
}

func TestSnapshotJSON(t *testing.T) {
	s := Snapshot{
		Tracks: []*Track{{ID: "x", Name: "A.mp3", Path: "/secret/A.mp3"}},
		State:  Playing,
		Mode:   ModeRadial,
	}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if strings.Contains(out, "/secret") {
		t.Errorf("track path leaked into JSON: %s", out)
	}
	if !strings.Contains(out, `"state":"playing"`) {
		t.Errorf("state not encoded as text: %s", out)
	}
	if !strings.Contains(out, `"visualizerMode":"radial"`) {
		t.Errorf("mode not encoded as text: %s", out)
	}
}

func TestSnapshotIsFavoriteByName(t *testing.T) {
	a := &Track{ID: "1", Name: "A.mp3"}
	dup := &Track{ID: "2", Name: "A.mp3"}
	s := Snapshot{Favorites: []string{"A.mp3"}}
	if !s.IsFavorite(a) || !s.IsFavorite(dup) {
		t.Error("favorites are keyed by name, both same-named tracks should match")
	}
}
