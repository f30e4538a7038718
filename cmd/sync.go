package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/tidalx/internal/models"
	"github.com/desertthunder/tidalx/internal/shared"
	"github.com/desertthunder/tidalx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// notConnected adds a hint to auth errors.
func notConnected(err error) error {
	if shared.IsAuthError(err) {
		return fmt.Errorf("%w (run 'tidalx auth' to connect your Tidal account)", err)
	}
	return err
}

// Sync fetches the recent listening history and ingests it, printing progress as it goes.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	sync, _, err := r.syncer()
	if err != nil {
		return err
	}

	quiet := cmd.Bool("quiet")
	progress := make(chan tasks.ProgressUpdate, 100)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Debug("sync progress", "phase", update.Phase, "step", update.Step, "total", update.Total)
			if !quiet {
				r.writePlain("  %s\n", update.Message)
			}
		}
	}()

	result, err := sync.Sync(ctx, r.userKey(), progress)
	close(progress)
	<-done

	if err != nil {
		return notConnected(err)
	}

	r.logger.Info("history synced", "tracks", result.Tracks, "albums", result.Albums)
	r.writePlain("✓ Synced %s\n", result)
	return nil
}

// Play starts playback of an album and counts the listen.
//
// When Tidal does not offer remote playback the album link is printed instead.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: album id", shared.ErrMissingArgument)
	}

	sync, _, err := r.syncer()
	if err != nil {
		return err
	}

	err = sync.Play(ctx, r.userKey(), id)
	if errors.Is(err, shared.ErrPlaybackUnsupported) {
		link := models.AlbumURL(id)
		r.logger.Warn("remote playback unavailable", "album", id, "error", err)
		r.writePlain("⚠ Remote playback is not available for this account.\n")
		r.writePlain("Open the album on Tidal: %s\n", link)
		if cmd.Bool("open") {
			if err := openBrowser(link); err != nil {
				r.logger.Warn("failed to open browser", "error", err)
			}
		}
		return nil
	}
	if err != nil {
		return notConnected(err)
	}

	r.writePlain("✓ Playing album %s\n", id)
	return nil
}
