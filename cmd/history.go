package main

import (
	"context"

	"github.com/desertthunder/loopauth/internal/formatter"
	"github.com/desertthunder/loopauth/internal/repositories"
	"github.com/urfave/cli/v3"
)

// History lists recorded flows, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	flows, err := repositories.NewFlowRepository(db).List(map[string]any{
		"limit":  int(cmd.Int("limit")),
		"status": cmd.String("status"),
	})
	if err != nil {
		return err
	}

	format := formatter.FormatText
	switch {
	case cmd.Bool("json"):
		format = formatter.FormatJSON
	case cmd.Bool("csv"):
		format = formatter.FormatCSV
	case cmd.Bool("markdown"):
		format = formatter.FormatMarkdown
	}

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteExport(flows, format, path); err != nil {
			return err
		}
		r.logger.Info("history exported", "path", path, "flows", len(flows))
		return nil
	}

	data, err := formatter.Render(flows, format)
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}
