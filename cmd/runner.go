package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/facesync/internal/formatter"
	"github.com/desertthunder/facesync/internal/repositories"
	"github.com/desertthunder/facesync/internal/services"
	"github.com/desertthunder/facesync/internal/shared"
	"github.com/desertthunder/facesync/internal/tasks"
	"github.com/desertthunder/facesync/internal/ui"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config   *shared.Config
	provider services.FileProvider
	logger   *log.Logger
	output   io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config   *shared.Config
	Provider services.FileProvider
	Logger   *log.Logger
	Output   io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:   opts.Config,
		provider: opts.Provider,
		logger:   opts.Logger,
		output:   opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, syncCommand, facesCommand, clustersCommand, statusCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig reloads configuration when the command's --config flag points at
// an existing file; otherwise the Runner's config stands.
func (r *Runner) loadConfig(cmd *cli.Command) *shared.Config {
	path := cmd.String("config")
	if path == "" {
		return r.config
	}
	if _, err := os.Stat(path); err != nil {
		return r.config
	}
	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load config, using defaults", "path", path, "err", err)
		return r.config
	}
	return config
}

// fileProvider returns the injected provider (tests) or a remote client
// built from config.
func (r *Runner) fileProvider(config *shared.Config) services.FileProvider {
	if r.provider != nil {
		return r.provider
	}
	return services.NewRemoteClient(config.Remote.BaseURL, config.Remote.Token, config.Remote.RateLimit)
}

// Setup initializes the database schema and writes a starter config file if
// none exists.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := shared.CreateConfigFile(path); err != nil {
			return err
		}
		r.writePlainln("Created %s", path)
	}

	config := r.loadConfig(cmd)
	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := shared.RunMigrations(db); err != nil {
		return err
	}

	r.writePlainln("Database ready at %s", config.Database.Path)
	return nil
}

// Sync runs one full batch through the pipeline and prints the report.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
	if err := shared.RunMigrations(db); err != nil {
		return err
	}

	concurrency := config.ML.Concurrency
	if n := cmd.Int("concurrency"); n > 0 {
		concurrency = int(n)
	}

	sc, err := tasks.NewSyncContext(tasks.Options{
		Token:               config.Remote.Token,
		Config:              config.ML,
		ShouldUpdateVersion: cmd.Bool("update-version"),
		Concurrency:         concurrency,
		Provider:            r.fileProvider(config),
		Faces:               repositories.NewFaceRepository(db),
		Library:             repositories.NewLibraryRepository(db),
		Logger:              r.logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := sc.Dispose(context.Background()); err != nil {
			r.logger.Warn("dispose failed", "err", err)
		}
	}()

	report, err := sc.Run(ctx, nil)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		out, err := formatter.ReportToJSON(report, cmd.Bool("pretty"))
		if err != nil {
			return err
		}
		return r.writeBytes(append(out, '\n'))
	}

	out, err := formatter.ReportToText(report)
	if err != nil {
		return err
	}
	if err := r.writeBytes(out); err != nil {
		return err
	}

	if report.FatalErr != nil {
		return fmt.Errorf("sync aborted: %w", report.FatalErr)
	}
	return nil
}

// Faces lists the stored faces for one file.
func (r *Runner) Faces(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)
	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	faces, err := repositories.NewFaceRepository(db).ListByFile(ctx, cmd.String("file"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(faces, true)
	}

	r.writePlainln("Faces for %s: %d", cmd.String("file"), len(faces))
	for _, face := range faces {
		cluster := face.ClusterID
		if cluster == "" {
			cluster = "(unclustered)"
		}
		r.writePlain("%d. %s score=%.2f cluster=%s\n", face.Index+1, face.ID, face.Detection.Score, cluster)
	}
	return nil
}

// Clusters lists cluster membership across the library.
func (r *Runner) Clusters(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)
	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	clusters, err := repositories.NewFaceRepository(db).ListClusters(ctx)
	if err != nil {
		return err
	}

	return r.writeBytes(formatter.ClustersToText(clusters))
}

// Status prints the library version and stored face count.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)
	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	library, err := repositories.NewLibraryRepository(db).Get(ctx)
	if err != nil {
		return err
	}
	count, err := repositories.NewFaceRepository(db).Count(ctx)
	if err != nil {
		return err
	}

	r.writePlainln("ML library version: %d", library.Version)
	r.writePlain("Stored faces: %d\n", count)
	return nil
}

// TUI runs a sync with the live bubbletea progress view.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := shared.RunMigrations(db); err != nil {
		return err
	}

	sc, err := tasks.NewSyncContext(tasks.Options{
		Token:               config.Remote.Token,
		Config:              config.ML,
		ShouldUpdateVersion: cmd.Bool("update-version"),
		Provider:            r.fileProvider(config),
		Faces:               repositories.NewFaceRepository(db),
		Library:             repositories.NewLibraryRepository(db),
		Logger:              r.logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := sc.Dispose(context.Background()); err != nil {
			r.logger.Warn("dispose failed", "err", err)
		}
	}()

	updates := make(chan tasks.ProgressUpdate, 64)
	results := make(chan ui.Msg, 1)

	go func() {
		report, err := sc.Run(ctx, updates)
		results <- ui.SyncDone(report, err)
	}()

	_, err = tea.NewProgram(ui.NewModel(updates, results)).Run()
	return err
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return r.writeBytes(append(output, '\n'))
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
