package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

type listenOutput struct {
	Port uint16 `json:"port"`
	URL  string `json:"url"`
}

// Listen binds the loopback port, waits for one callback and prints the captured URL.
func (r *Runner) Listen(ctx context.Context, cmd *cli.Command) error {
	port, err := r.listenPort(cmd)
	if err != nil {
		return err
	}

	flow, record, recorder, err := r.startFlow(port)
	if err != nil {
		return err
	}

	asJSON := cmd.Bool("json")
	if !asJSON {
		r.writePlain("Listening on %s\n", flow.RedirectURI())
	}

	url, err := r.wait(ctx, flow, r.timeout(cmd))
	recorder.Finish(record, flowStatus(err), url, err)
	if err != nil {
		return err
	}

	if asJSON {
		return r.writeJSON(listenOutput{Port: flow.Port(), URL: url}, false)
	}
	return r.writePlain("%s\n", url)
}
