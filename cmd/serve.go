package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"DevAmp/config"
	"DevAmp/core/ingest"
	"DevAmp/core/visualizer"
	"DevAmp/logger"
	"DevAmp/model"
	"DevAmp/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the browser UI bridge",
	Long:  `Start the loopback HTTP and websocket bridge that serves the web UI and drives the player.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), loadConfig())
	},
}

func init() {
	serveCmd.Flags().StringVar(&flags.addr, "addr", "", "UI bridge listen address")
	serveCmd.Flags().StringVar(&flags.webDir, "web-dir", "", "directory with the web UI")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context, cfg *config.Config) error {
	if err := initLogger(cfg, false); err != nil {
		return err
	}
	defer logger.Sync()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt := newRuntime(cfg)
	defer rt.Close()

	hub := server.NewHub()
	go hub.Run()
	defer hub.Stop()

	snaps, cancel := rt.session.Subscribe()
	defer cancel()
	go hub.FollowState(ctx, snaps)

	if cfg.MusicDir != "" {
		if err := followMusicDir(ctx, cfg.MusicDir, rt); err != nil {
			logger.Warn("music directory unavailable",
				logger.String("dir", cfg.MusicDir),
				logger.ErrorField(err))
		}
	}

	renderer := visualizer.NewRenderer(cfg.SurfaceWidth, cfg.SurfaceHeight)
	loop := visualizer.NewLoop(rt.session, renderer, cfg.FrameRate, hub.PublishFrame)
	go loop.Run(ctx)
	defer loop.Stop()

	logger.Info("Access the UI at http://" + cfg.ListenAddr + "/")
	srv := server.New(cfg, rt.session, hub)
	srv.SetSurface(renderer)
	return srv.Run(ctx)
}

// followMusicDir loads the audio already in dir and appends files that
// appear later.
func followMusicDir(ctx context.Context, dir string, rt *runtime) error {
	tracks, err := ingest.Scan(dir)
	if err != nil {
		return err
	}
	rt.session.AddTracks(tracks...)

	w, err := ingest.NewWatcher(dir, func(tracks []*model.Track) {
		rt.session.AddTracks(tracks...)
	})
	if err != nil {
		return err
	}
	go func() {
		defer w.Close()
		w.Run(ctx)
	}()
	return nil
}
