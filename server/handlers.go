package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"DevAmp/core/ingest"
	"DevAmp/core/keys"
	"DevAmp/logger"
	"DevAmp/model"
)

// Player is the session surface the UI bridge drives.
type Player interface {
	keys.Transport

	Snapshot() model.Snapshot
	AddTracks(tracks ...*model.Track)
	Remove(i int)
	Select(i int)
	ToggleShuffle()
	ToggleRepeat()
	ToggleFavorite()
	CycleVisualizerMode()
	Activate()
	SetVolume(level float64)
	Seek(fraction float64)
	SetEqBandGain(freq, db float64) bool
}

// Surface is the visualizer drawing surface sized by the UI.
type Surface interface {
	Resize(w, h int)
}

// maxSurfaceSide bounds either side of a requested visualizer surface.
const maxSurfaceSide = 4096

// APIHandler serves the JSON API.
type APIHandler struct {
	player  Player
	surface Surface
}

// NewAPIHandler creates an APIHandler driving p.
func NewAPIHandler(p Player) *APIHandler {
	return &APIHandler{player: p}
}

type addTracksRequest struct {
	Paths []string `json:"paths"`
}

type volumeRequest struct {
	Level *float64 `json:"level"`
	Delta *float64 `json:"delta"`
}

type seekRequest struct {
	Fraction *float64 `json:"fraction"`
	// Offset seeks relative to the current position, in seconds.
	Offset *float64 `json:"offset"`
}

type sizeRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type eqRequest struct {
	Frequency float64 `json:"frequency"`
	GainDB    float64 `json:"gainDb"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("write response", logger.ErrorField(err))
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func pathIndex(r *http.Request) (int, bool) {
	i, err := strconv.Atoi(mux.Vars(r)["index"])
	return i, err == nil
}

// GetStateHandler returns the current snapshot.
func (h *APIHandler) GetStateHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.player.Snapshot())
}

// AddTracksHandler appends the audio files among the posted paths.
func (h *APIHandler) AddTracksHandler(w http.ResponseWriter, r *http.Request) {
	var req addTracksRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tracks := ingest.FilterAudio(req.Paths)
	h.player.AddTracks(tracks...)

	logger.Debug("filtered playlist paths",
		logger.Int("requested", len(req.Paths)),
		logger.Int("accepted", len(tracks)))
	writeJSON(w, http.StatusOK, map[string]any{
		"added":  len(tracks),
		"tracks": tracks,
	})
}

// SelectTrackHandler loads and plays the track at {index}.
func (h *APIHandler) SelectTrackHandler(w http.ResponseWriter, r *http.Request) {
	if i, ok := pathIndex(r); ok {
		h.player.Select(i)
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveTrackHandler drops the track at {index}.
func (h *APIHandler) RemoveTrackHandler(w http.ResponseWriter, r *http.Request) {
	if i, ok := pathIndex(r); ok {
		h.player.Remove(i)
	}
	w.WriteHeader(http.StatusNoContent)
}

// TransportHandler runs the transport action named by {action}.
func (h *APIHandler) TransportHandler(w http.ResponseWriter, r *http.Request) {
	action := mux.Vars(r)["action"]
	switch action {
	case "toggle-play":
		h.player.TogglePlay()
	case "next":
		h.player.Next()
	case "prev":
		h.player.Prev()
	case "shuffle":
		h.player.ToggleShuffle()
	case "repeat":
		h.player.ToggleRepeat()
	case "favorite":
		h.player.ToggleFavorite()
	case "visualizer":
		h.player.CycleVisualizerMode()
	case "activate":
		h.player.Activate()
	default:
		http.Error(w, "Unknown transport action", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// VolumeHandler sets the volume absolutely or by a delta.
func (h *APIHandler) VolumeHandler(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	switch {
	case req.Level != nil:
		h.player.SetVolume(*req.Level)
	case req.Delta != nil:
		h.player.AdjustVolume(*req.Delta)
	default:
		http.Error(w, "level or delta is required", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SeekHandler seeks to a fraction of the duration or by an offset.
func (h *APIHandler) SeekHandler(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if !decodeBody(w, r, &req) {
		return
	}
	switch {
	case req.Fraction != nil:
		h.player.Seek(*req.Fraction)
	case req.Offset != nil:
		h.player.SeekBy(time.Duration(*req.Offset * float64(time.Second)))
	default:
		http.Error(w, "fraction or offset is required", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EqHandler sets the gain of one equalizer band. Unknown frequencies are
// ignored.
func (h *APIHandler) EqHandler(w http.ResponseWriter, r *http.Request) {
	var req eqRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !h.player.SetEqBandGain(req.Frequency, req.GainDB) {
		logger.Debug("eq change ignored", logger.Float64("frequency", req.Frequency))
	}
	w.WriteHeader(http.StatusNoContent)
}

// KeyHandler applies a keyboard shortcut.
func (h *APIHandler) KeyHandler(w http.ResponseWriter, r *http.Request) {
	var ev keys.Event
	if !decodeBody(w, r, &ev) {
		return
	}
	keys.Handle(h.player, ev)
	w.WriteHeader(http.StatusNoContent)
}

// SurfaceSizeHandler resizes the visualizer surface to the UI's canvas.
func (h *APIHandler) SurfaceSizeHandler(w http.ResponseWriter, r *http.Request) {
	if h.surface == nil {
		http.Error(w, "No visualizer surface", http.StatusServiceUnavailable)
		return
	}
	var req sizeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Width <= 0 || req.Height <= 0 || req.Width > maxSurfaceSide || req.Height > maxSurfaceSide {
		http.Error(w, "width and height must be between 1 and 4096", http.StatusBadRequest)
		return
	}
	h.surface.Resize(req.Width, req.Height)
	logger.Debug("visualizer surface resized",
		logger.Int("width", req.Width),
		logger.Int("height", req.Height))
	w.WriteHeader(http.StatusNoContent)
}
