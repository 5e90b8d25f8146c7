package main

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/praghad/internal/shared"
	"github.com/desertthunder/praghad/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	logger *log.Logger
	output io.Writer
	input  io.Reader
	styles *ui.Palette
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Logger *log.Logger
	Output io.Writer
	Input  io.Reader
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
	if opts.Input == nil {
		opts.Input = os.Stdin
	}

	return &Runner{
		config: opts.Config,
		logger: opts.Logger,
		output: opts.Output,
		input:  opts.Input,
		styles: ui.Styles,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, setupCommand, userCommand, trackCommand, statsCommand, sessionCommand, clientCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig replaces the runner config with the file named by the command's config flag.
//
// A missing file keeps the current config, so commands work before setup has run.
func (r *Runner) loadConfig(cmd *cli.Command) error {
	path := cmd.String("config")
	if path == "" {
		return nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		r.logger.Debug("config file not found, using current settings", "path", path)
		return nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return err
	}
	if err := shared.SetLogLevel(r.logger, config.Log.Level); err != nil {
		r.logger.Warn("ignoring log level", "error", err)
	}

	r.config = config
	return nil
}

// openDatabase loads the config and opens the migrated database it names.
func (r *Runner) openDatabase(cmd *cli.Command) (*sql.DB, error) {
	if err := r.loadConfig(cmd); err != nil {
		return nil, err
	}

	db, err := shared.OpenMigrated(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", r.config.Database.Path, err)
	}
	return db, nil
}

// promptPassword reads a password from the runner input, hiding the echo when it is a terminal.
func (r *Runner) promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	if f, ok := r.input.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytes, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(bytes)), nil
	}

	line, err := bufio.NewReader(r.input).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
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

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("%s\n", r.styles.Title(title))
}

func (r *Runner) writeTable(headers []string, rows [][]string) error {
	return r.writePlain("%s\n", r.styles.Table(headers, rows))
}
