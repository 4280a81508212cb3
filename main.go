// splashctl renders localized boot-status messages and drives the frecon
// compositor (or the bare framebuffer) to display them during early boot.
//
// Usage:
//
//	splashctl [flags] <message_id> <locales>
//	splashctl [flags] show_message <message_id> <locales>
//	splashctl [flags] show_file <name> <path>
//	splashctl [flags] show_spinner <name> <path>
//	splashctl [flags] update_progress <name> <percent>
//	splashctl [flags] action restore_frecon
//
// Flags:
//
//	-config string   Path to configuration file (default: /etc/splashctl/config.yaml)
//	-preview         Preview a message in the terminal instead of displaying it
//	-diagnose        Report display stack health
//	-man             Print the man page to stdout and exit
//	-verbose         Enable verbose logging
//	-version         Print version and exit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"gitlab.com/tinyland/lab/splashctl/compositor"
	"gitlab.com/tinyland/lab/splashctl/config"
	"gitlab.com/tinyland/lab/splashctl/docs/manpage"
	"gitlab.com/tinyland/lab/splashctl/fbsplash"
	"gitlab.com/tinyland/lab/splashctl/preview"
	"gitlab.com/tinyland/lab/splashctl/render"
	"gitlab.com/tinyland/lab/splashctl/splash"
)

const defaultConfigPath = "/etc/splashctl/config.yaml"

// errUsage marks command-line errors that should print usage help.
var errUsage = errors.New("usage")

func main() {
	var (
		configPath   = flag.String("config", "", "Path to configuration file (default: "+defaultConfigPath+")")
		previewMode  = flag.Bool("preview", false, "Preview a message in the terminal instead of displaying it")
		diagnoseMode = flag.Bool("diagnose", false, "Report display stack health")
		showMan      = flag.Bool("man", false, "Print the man page to stdout and exit")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
		showVersion  = flag.Bool("version", false, "Print version and exit")
	)
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("splashctl %s (%s) built %s\n", version, commit, date)
		os.Exit(0)
	}
	if *showMan {
		fmt.Print(manpage.Generate(version, commit, date))
		os.Exit(0)
	}

	path := *configPath
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "splashctl: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "splashctl: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})).With("tag", cfg.Runtime.LogTag)

	if *diagnoseMode {
		os.Exit(runDiagnostics(cfg))
	}

	if *previewMode {
		if err := runMessagePreview(cfg, flag.Args()); err != nil {
			fmt.Fprintf(os.Stderr, "splashctl: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	controller := buildController(cfg, logger)
	if err := dispatch(ctx, controller, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "splashctl: %v\n", err)
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr)
			usage()
		}
		os.Exit(1)
	}
}

// commandRunner is the controller surface the CLI dispatches on.
type commandRunner interface {
	DisplayMessage(ctx context.Context, messageID string, locales []string) error
	DisplayFile(ctx context.Context, name, path string) error
	DisplaySpinner(ctx context.Context, name, path string) error
	UpdateProgress(percent int) error
	Action(ctx context.Context, name string) error
}

// dispatch resolves the positional command form and runs it. A bare
// two-argument invocation is shorthand for show_message.
func dispatch(ctx context.Context, runner commandRunner, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command given", errUsage)
	}
	switch args[0] {
	case "show_message":
		if len(args) < 3 {
			return fmt.Errorf("%w: show_message <message_id> <locales>", errUsage)
		}
		return runner.DisplayMessage(ctx, args[1], localeList(args[2:]))
	case "show_file":
		if len(args) != 3 {
			return fmt.Errorf("%w: show_file <name> <path>", errUsage)
		}
		return runner.DisplayFile(ctx, args[1], args[2])
	case "show_spinner":
		if len(args) != 3 {
			return fmt.Errorf("%w: show_spinner <name> <path>", errUsage)
		}
		return runner.DisplaySpinner(ctx, args[1], args[2])
	case "update_progress":
		// The name argument keeps the invocation shape of show_file; only
		// the percent is used.
		if len(args) != 3 {
			return fmt.Errorf("%w: update_progress <name> <percent>", errUsage)
		}
		percent, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("%w: update_progress wants a number, got %q", errUsage, args[2])
		}
		return runner.UpdateProgress(percent)
	case "action":
		if len(args) != 2 {
			return fmt.Errorf("%w: action <name>", errUsage)
		}
		return runner.Action(ctx, args[1])
	default:
		if len(args) != 2 {
			return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
		}
		return runner.DisplayMessage(ctx, args[0], localeList(args[1:]))
	}
}

// localeList flattens locale arguments; each argument may itself hold a
// space-separated list, most preferred first.
func localeList(args []string) []string {
	return strings.Fields(strings.Join(args, " "))
}

// buildController wires the display stack: the compositor when its binary
// is installed, the framebuffer fallback otherwise.
func buildController(cfg *config.Config, logger *slog.Logger) *splash.Controller {
	renderer := render.New(render.Config{
		Bin:           cfg.Render.RendererBin,
		Font:          cfg.Font(),
		DPI:           cfg.Render.DPI,
		MarginPx:      cfg.Render.MarginPx,
		TextColor:     cfg.Render.TextColor,
		BackgroundRGB: cfg.Render.BackgroundRGB,
		ExtraArgs:     cfg.Render.ExtraArgs,
		WorkDir:       cfg.Runtime.ImageDir,
	}, logger)

	manager := compositor.NewManager(compositor.Config{
		Bin:               cfg.Compositor.CompositorBin,
		DeviceDir:         cfg.Compositor.DeviceDir,
		BackgroundRGB:     cfg.Render.BackgroundRGB,
		BackgroundPath:    cfg.Assets.BackgroundPath,
		SpinnerIntervalMs: cfg.Compositor.SpinnerIntervalMs,
		RemapVTs:          cfg.Compositor.RemapVTs,
		IndicatorPath:     indicatorPath(cfg),
		DevModeFile:       cfg.Runtime.DevModeFile,
	}, logger)

	session, painter := selectBackend(cfg, manager, logger)

	return splash.NewController(splash.Config{
		MessageDir:      cfg.Assets.MessageDir,
		SpinnerDir:      cfg.Assets.SpinnerDir,
		BackgroundPath:  cfg.Assets.BackgroundPath,
		BackgroundRGB:   cfg.Render.BackgroundRGB,
		ProgressBarRGB:  cfg.Progress.BarRGB,
		ProgressDivisor: cfg.Progress.Divisor,
		ImageDir:        cfg.Runtime.ImageDir,
		DefaultLocale:   cfg.Render.Locale,
		LockPath:        filepath.Join(cfg.Runtime.RunDir, "display.lock"),
	}, session, painter, renderer, logger)
}

// selectBackend picks the display backend: the compositor when its binary
// is installed, the framebuffer when it is not and the fallback is enabled.
func selectBackend(cfg *config.Config, manager *compositor.Manager, logger *slog.Logger) (splash.Session, splash.Painter) {
	if manager.Available() || !cfg.Fallback.Framebuffer {
		return manager, manager.Device()
	}
	logger.Warn("compositor binary missing, falling back to framebuffer",
		"bin", cfg.Compositor.CompositorBin,
		"device", cfg.Fallback.FramebufferDev)
	fb := fbsplash.New(fbsplash.Config{
		Device:        cfg.Fallback.FramebufferDev,
		BackgroundRGB: cfg.Render.BackgroundRGB,
	}, logger)
	return fb, fb
}

// indicatorPath is where the displayed flag file lives under the run dir.
func indicatorPath(cfg *config.Config) string {
	return filepath.Join(cfg.Runtime.RunDir, "message-displayed")
}

// runMessagePreview resolves a message the same way show_message would
// and opens it in the terminal preview.
func runMessagePreview(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: -preview <message_id> [locales]", errUsage)
	}
	messageID := args[0]
	locales := localeList(args[1:])
	if len(locales) == 0 {
		locales = []string{cfg.Render.Locale}
	}
	path, locale, err := splash.FindMessage(cfg.Assets.MessageDir, messageID, locales)
	if err != nil {
		return err
	}
	text, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	model := preview.NewModel(messageID, locale, strings.TrimSpace(string(text)), splash.ClassifyMessage(messageID))
	return preview.Run(model)
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: splashctl [flags] <command>

Commands:
  show_message <message_id> <locales>   render and display a localized message
  show_file <name> <path>               display a file (image or markup)
  show_spinner <name> <path>            display a file with the spinner overlay
  update_progress <name> <percent>      draw the boot progress bar
  action restore_frecon                 restore the login console

The bare form "splashctl <message_id> <locales>" is shorthand for
show_message. Locales are space separated, most preferred first.

Flags:
`)
	flag.PrintDefaults()
}
