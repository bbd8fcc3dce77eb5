package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// History lists past recognition outcomes, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	limit := int(cmd.Int("limit"))
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	if err := r.openDatabase(); err != nil {
		return err
	}

	recs, err := r.history.List(limit)
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(recs, pretty)
	}

	if len(recs) == 0 {
		r.writePlain("No recognitions yet. Run 'snaptrack snap' to capture one.\n")
		return nil
	}

	r.writePlain("Last %d recognitions:\n\n", len(recs))
	for i, rec := range recs {
		when := rec.CreatedAt.Local().Format("2006-01-02 15:04")
		if rec.Failure != "" {
			title := rec.Track.String()
			if rec.Track.Title == "" {
				title = "(unrecognized)"
			}
			r.writePlain("%d. ✗ %s\n", i+1, title)
			r.writePlain("   %s • failed at %s: %s\n", when, rec.Stage, rec.Failure)
		} else {
			r.writePlain("%d. ✓ %s\n", i+1, rec.Track.String())
			r.writePlain("   %s • saved to playlist %s\n", when, rec.PlaylistID)
		}
		r.writePlain("\n")
	}

	return nil
}
