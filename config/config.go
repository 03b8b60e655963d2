package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Output backends for the playback engine.
const (
	OutputSpeaker  = "speaker"
	OutputHeadless = "headless"
)

// Config stores the application configuration.
type Config struct {
	ListenAddr string // UI bridge address, loopback by default
	WebAppDir  string // Path to the web application's UI files
	MusicDir   string // Watched for new audio files; empty disables the watcher

	AudioOutput        string        // speaker or headless
	SampleRate         int           // output sample rate in Hz
	SpeakerBuffer      time.Duration // device buffer length
	TimeUpdateInterval time.Duration // position notification period
	InitialVolume      float64

	FrameRate     int // visualizer frames per second
	SurfaceWidth  int
	SurfaceHeight int

	LogLevel      string
	LogFile       string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int
	LogCompress   bool
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}

	output := getEnv("DEVAMP_AUDIO_OUTPUT", OutputSpeaker)
	if output != OutputHeadless {
		output = OutputSpeaker
	}

	return &Config{
		ListenAddr: getEnv("DEVAMP_LISTEN_ADDR", "127.0.0.1:8090"),
		WebAppDir:  getEnv("DEVAMP_WEB_DIR", filepath.Join("web", "ui")),
		MusicDir:   getEnv("DEVAMP_MUSIC_DIR", ""),

		AudioOutput:        output,
		SampleRate:         getEnvInt("DEVAMP_SAMPLE_RATE", 44100),
		SpeakerBuffer:      time.Duration(getEnvInt("DEVAMP_SPEAKER_BUFFER_MS", 100)) * time.Millisecond,
		TimeUpdateInterval: time.Duration(getEnvInt("DEVAMP_TIME_UPDATE_MS", 250)) * time.Millisecond,
		InitialVolume:      clamp01(getEnvFloat("DEVAMP_VOLUME", 1.0)),

		FrameRate:     getEnvInt("DEVAMP_FRAME_RATE", 60),
		SurfaceWidth:  getEnvInt("DEVAMP_SURFACE_WIDTH", 800),
		SurfaceHeight: getEnvInt("DEVAMP_SURFACE_HEIGHT", 200),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
		LogMaxSize:    getEnvInt("LOG_MAX_SIZE", 10),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
		LogMaxAge:     getEnvInt("LOG_MAX_AGE", 7),
		LogCompress:   getEnvBool("LOG_COMPRESS", false),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
