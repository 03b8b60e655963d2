package cmd

import (
	"time"

	"github.com/gopxl/beep/v2"

	"DevAmp/config"
	"DevAmp/core/audio"
	"DevAmp/core/player"
	"DevAmp/logger"
)

const headlessPeriod = 20 * time.Millisecond

// runtime is one player instance: output device, engine and session.
type runtime struct {
	engine  *audio.BeepEngine
	session *player.Session
}

func initLogger(cfg *config.Config, quiet bool) error {
	return logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogFile,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   cfg.LogCompress,
		Quiet:      quiet,
	})
}

func newRuntime(cfg *config.Config) *runtime {
	var out audio.Output
	if cfg.AudioOutput == config.OutputHeadless {
		out = audio.NewHeadlessOutput(headlessPeriod)
	} else {
		out = audio.NewSpeakerOutput()
	}

	engine := audio.NewBeepEngine(out, audio.Options{
		SampleRate: beep.SampleRate(cfg.SampleRate),
		BufferSize: cfg.SpeakerBuffer,
		TimeUpdate: cfg.TimeUpdateInterval,
	})
	engine.SetVolume(cfg.InitialVolume)

	logger.Info("audio engine ready",
		logger.String("output", cfg.AudioOutput),
		logger.Int("sampleRate", cfg.SampleRate),
		logger.Float64("volume", cfg.InitialVolume))

	return &runtime{
		engine:  engine,
		session: player.NewSession(engine, player.Options{}),
	}
}

func (rt *runtime) Close() {
	rt.session.Close()
	rt.engine.Close()
}
