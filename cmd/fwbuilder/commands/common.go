package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/fwbuilder/internal/config"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
	// Out receives command output and build records; stdout when nil.
	Out io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

func (g *Global) logger() *slog.Logger {
	if g == nil || g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"fwbuilder.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Init     InitCmd     `cmd:"" help:"Write a default configuration and project file"`
	Generate GenerateCmd `cmd:"" help:"Render the firmware configuration files from the project options"`
	Build    BuildCmd    `cmd:"" help:"Compile the firmware with PlatformIO"`
	Clean    CleanCmd    `cmd:"" help:"Remove PlatformIO build artifacts"`
	Upload   UploadCmd   `cmd:"" help:"Compile and upload the firmware to the board"`
	Options  OptionsCmd  `cmd:"" help:"List project options"`
	Set      SetCmd      `cmd:"" help:"Set option values (NAME=VALUE)"`
	Enable   EnableCmd   `cmd:"" help:"Enable options"`
	Disable  DisableCmd  `cmd:"" help:"Disable options"`
	History  HistoryCmd  `cmd:"" help:"List past build sessions"`
	Watch    WatchCmd    `cmd:"" help:"Regenerate configuration files whenever the project changes"`

	ToolVersion VersionCmd `cmd:"" name:"version" help:"Show fwbuilder and PlatformIO versions"`
}

// AfterApply runs after flag parsing; setup logging once. The level comes from
// --verbose, then FWBUILDER_LOG_LEVEL, then the configuration file.
func (c *CLI) AfterApply() error {
	slog.SetDefault(slog.New(c.handler(os.Stderr)))
	return nil
}

func (c *CLI) handler(w io.Writer) slog.Handler {
	var logging config.LoggingConfig
	if cfg, err := config.Load(c.Config); err == nil {
		logging = cfg.Logging
	}
	level := config.NormalizeLogLevel(logging.Level)
	if env := os.Getenv("FWBUILDER_LOG_LEVEL"); env != "" {
		level = config.NormalizeLogLevel(env)
	}
	if c.Verbose {
		level = config.LogLevelDebug
	}
	opts := &slog.HandlerOptions{Level: level.SlogLevel()}
	if config.NormalizeLogFormat(logging.Format) == config.LogFormatJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
