package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/desertthunder/praghad/internal/formatter"
	"github.com/desertthunder/praghad/internal/models"
	"github.com/desertthunder/praghad/internal/repositories"
	"github.com/desertthunder/praghad/internal/shared"
	"github.com/desertthunder/praghad/internal/tasks"
	"github.com/urfave/cli/v3"
)

// TrackAdd registers one file with the tags given on the command line.
func (r *Runner) TrackAdd(ctx context.Context, cmd *cli.Command) error {
	filename := cmd.Args().First()
	if filename == "" {
		return fmt.Errorf("%w: file", shared.ErrMissingArgument)
	}

	db, err := r.openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	track := &models.Track{
		Filename:    filename,
		TrackNumber: int(cmd.Int("track")),
		Title:       cmd.String("title"),
		Artist:      cmd.String("artist"),
		Album:       cmd.String("album"),
		Genre:       cmd.String("genre"),
		Comment:     cmd.String("comment"),
		Year:        int(cmd.Int("year")),
		Length:      int(cmd.Int("length")),
	}

	engine := tasks.NewLibraryEngine(repositories.NewTrackRepository(db), r.config.Library.MusicDir)
	result, err := engine.Import(ctx, nil, []*models.Track{track})
	if err != nil {
		return err
	}
	if len(result.Failed) > 0 {
		return result.Failed[0].Err
	}

	r.logger.Info("track added", "id", track.ID, "file", track.Filename)
	return r.writePlain("%s\n", r.styles.OK(fmt.Sprintf("✓ Added track %d: %s", track.ID, formatter.Label(track))))
}

// TrackList prints a page of the catalog as a table, CSV or JSON.
func (r *Runner) TrackList(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	limit := int(cmd.Int("limit"))
	if limit <= 0 {
		limit = repositories.NoLimit
	}

	repo := repositories.NewTrackRepository(db)
	tracks, err := repo.List(ctx, int(cmd.Int("offset")), limit)
	if err != nil {
		return err
	}

	switch {
	case cmd.Bool("json"):
		return r.writeJSON(tracks, true)
	case cmd.Bool("csv"):
		data, err := formatter.ExportToCSV(tracks)
		if err != nil {
			return err
		}
		_, err = r.output.Write(data)
		return err
	}

	if len(tracks) == 0 {
		return r.writePlain("%s\n", r.styles.Help("No tracks. Add one with: praghad track add <file>"))
	}

	total, err := repo.Count(ctx)
	if err != nil {
		return err
	}

	r.writePlainHeader(fmt.Sprintf("Tracks (%d of %d)", len(tracks), total))
	return r.writeTable(formatter.TableHeaders, formatter.Rows(tracks))
}

// TrackImport registers every row of a CSV file, printing progress as it goes.
func (r *Runner) TrackImport(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("%w: CSV file", shared.ErrMissingArgument)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	batch, err := formatter.ImportCSV(f)
	if err != nil {
		return err
	}

	db, err := r.openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	engine := tasks.NewLibraryEngine(repositories.NewTrackRepository(db), r.config.Library.MusicDir)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := r.printProgress(progressCh)

	result, err := engine.Import(ctx, progressCh, batch)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlainln("Imported %d of %d tracks", len(result.Imported), len(batch))
	for _, failed := range result.Failed {
		r.writePlain("%s\n", r.styles.Warn(fmt.Sprintf("  %s: %v", failed.Track.Filename, failed.Err)))
	}
	return nil
}

// TrackExport writes the whole catalog to a file.
func (r *Runner) TrackExport(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	tracks, err := repositories.NewTrackRepository(db).List(ctx, 0, repositories.NoLimit)
	if err != nil {
		return err
	}

	output := cmd.String("output")
	switch format := cmd.String("format"); format {
	case "csv":
		err = formatter.WriteCSVExport(tracks, output)
	case "text", "txt":
		err = formatter.WriteTextExport(tracks, output)
	default:
		return fmt.Errorf("%w: format %q (want csv or text)", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return err
	}

	r.logger.Info("catalog exported", "tracks", len(tracks), "path", output)
	return r.writePlain("%s\n", r.styles.OK(fmt.Sprintf("✓ Exported %d tracks to %s", len(tracks), output)))
}

// TrackCheck reports tracks whose file has gone missing.
func (r *Runner) TrackCheck(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	engine := tasks.NewLibraryEngine(repositories.NewTrackRepository(db), r.config.Library.MusicDir)
	result, err := engine.Check(ctx, nil)
	if err != nil {
		return err
	}

	if len(result.Missing) == 0 {
		return r.writePlain("%s\n", r.styles.OK(fmt.Sprintf("✓ All %d tracks present", result.Checked)))
	}

	rows := make([][]string, 0, len(result.Missing))
	for _, m := range result.Missing {
		rows = append(rows, []string{strconv.FormatInt(m.Track.ID, 10), m.Track.Filename, m.Err.Error()})
	}

	r.writePlainHeader(fmt.Sprintf("Missing %d of %d tracks", len(result.Missing), result.Checked))
	return r.writeTable([]string{"ID", "File", "Problem"}, rows)
}

// TrackRemove deletes one catalog entry.
func (r *Runner) TrackRemove(ctx context.Context, cmd *cli.Command) error {
	id, err := strconv.ParseInt(cmd.Args().First(), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: track id %q", shared.ErrInvalidArgument, cmd.Args().First())
	}

	db, err := r.openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repositories.NewTrackRepository(db).Delete(ctx, id); err != nil {
		return err
	}

	return r.writePlain("%s\n", r.styles.OK(fmt.Sprintf("✓ Removed track %d", id)))
}

// printProgress writes updates until progressCh is closed, then closes the returned channel.
func (r *Runner) printProgress(progressCh <-chan tasks.ProgressUpdate) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch {
			case update.Phase == tasks.Done:
				r.logger.Debug("batch finished", "summary", update.Message)
			case update.Err != nil:
				r.writePlain("   %s\n", r.styles.Warn(update.Message))
			default:
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()
	return done
}
