package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/tidalx/internal/formatter"
	"github.com/desertthunder/tidalx/internal/models"
	"github.com/desertthunder/tidalx/internal/shared"
	"github.com/urfave/cli/v3"
)

func parseOrder(cmd *cli.Command) (models.AlbumOrder, error) {
	order, ok := models.ParseAlbumOrder(cmd.String("sort"))
	if !ok {
		return order, fmt.Errorf("%w: --sort must be recent or count, got %q", shared.ErrInvalidArgument, cmd.String("sort"))
	}
	return order, nil
}

func (r *Runner) listAlbums(ctx context.Context, cmd *cli.Command) ([]*models.Album, models.AlbumOrder, error) {
	order, err := parseOrder(cmd)
	if err != nil {
		return nil, order, err
	}

	store, err := r.openStore()
	if err != nil {
		return nil, order, err
	}

	albums, err := store.Albums.List(ctx, order)
	if err != nil {
		return nil, order, err
	}
	return albums, order, nil
}

// AlbumsList prints the cached albums.
func (r *Runner) AlbumsList(ctx context.Context, cmd *cli.Command) error {
	albums, order, err := r.listAlbums(ctx, cmd)
	if err != nil {
		return err
	}

	if limit := int(cmd.Int("limit")); limit > 0 && limit < len(albums) {
		albums = albums[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(albums, cmd.Bool("pretty"))
	}

	if len(albums) == 0 {
		r.writePlain("No albums yet. Run 'tidalx sync' to import your listening history.\n")
		return nil
	}

	title := "Recently Listened"
	if order == models.OrderMostListened {
		title = "Most Listened"
	}
	r.writePlainHeader(fmt.Sprintf("%s (%d albums)", title, len(albums)))
	for i, album := range albums {
		r.writePlain("%3d. %s - %s\n", i+1, album.Artist, album.Title)
		r.writePlain("     %d plays · last %s · %s\n",
			album.ListenCount, album.LastListened.Local().Format(time.DateTime), album.ID)
	}
	return nil
}

// AlbumsExport writes the cached albums in the requested format.
func (r *Runner) AlbumsExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	albums, order, err := r.listAlbums(ctx, cmd)
	if err != nil {
		return err
	}

	if cmd.String("output") == "-" {
		data, err := formatter.Export(albums, format, order)
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	}

	path, err := formatter.WriteExport(albums, format, order, cmd.String("output"))
	if err != nil {
		return err
	}

	r.logger.Info("exported albums", "format", format, "count", len(albums), "path", path)
	r.writePlain("✓ Exported %d albums to %s\n", len(albums), path)
	return nil
}

// AlbumsDelete removes one album from the history.
func (r *Runner) AlbumsDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: album id", shared.ErrMissingArgument)
	}

	store, err := r.openStore()
	if err != nil {
		return err
	}

	if _, err := store.Albums.Get(ctx, id); err != nil {
		return err
	}
	if err := store.Albums.Delete(ctx, id); err != nil {
		return err
	}

	r.writePlain("✓ Deleted album %s\n", id)
	return nil
}
