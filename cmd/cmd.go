// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand initializes the database and writes a starter config.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Initialize database and run migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// syncCommand runs one full sync batch.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Run the face pipeline over all out-of-sync files",
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Max per-file pipelines in flight (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "update-version",
				Usage: "Bump the ML library version after a clean run",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the report as JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
			},
		},
		Action: r.Sync,
	}
}

// facesCommand lists stored faces for one file.
func facesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "faces",
		Usage: "List stored faces for a file",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:     "file",
				Usage:    "File ID to inspect",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Faces,
	}
}

// clustersCommand lists stored clusters.
func clustersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "clusters",
		Usage:  "List clusters across the library",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Clusters,
	}
}

// statusCommand prints library version and face counts.
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show ML library version and stored face count",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Status,
	}
}

// tuiCommand runs a sync with the live progress view.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Run a sync with a live progress view",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "update-version",
				Usage: "Bump the ML library version after a clean run",
			},
		},
		Action: r.TUI,
	}
}
