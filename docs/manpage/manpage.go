// Package manpage generates a roff-formatted man page for splashctl.
//
// The man page is generated at runtime from compiled-in version
// information, so the installed page always matches the binary.
//
// Usage:
//
//	splashctl -man | man -l -
//	splashctl -man > /usr/share/man/man1/splashctl.1
package manpage

import (
	"fmt"
	"strings"
	"time"
)

// Generate produces a complete roff-formatted man(1) page for splashctl.
// The version, commit, and date parameters are passed from the build-time
// linker variables so the man page always reflects the current build.
func Generate(version, commit, date string) string {
	var b strings.Builder

	writeHeader(&b, version)
	writeName(&b)
	writeSynopsis(&b)
	writeDescription(&b)
	writeCommands(&b)
	writeOptions(&b)
	writeConfiguration(&b)
	writeFiles(&b)
	writeExamples(&b)
	writeEnvironment(&b)
	writeExitStatus(&b)
	writeSeeAlso(&b)
	writeAuthors(&b)
	writeBugs(&b)
	writeFooter(&b, version, commit, date)

	return b.String()
}

// roffEscape escapes special roff characters in a string.
func roffEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `-`, `\-`)
	s = strings.ReplaceAll(s, `.`, `\&.`)
	return s
}

func writeHeader(b *strings.Builder, version string) {
	month := time.Now().Format("January 2006")
	fmt.Fprintf(b, ".TH SPLASHCTL 1 \"%s\" \"splashctl %s\" \"System Administration Utilities\"\n", month, version)
}

func writeName(b *strings.Builder) {
	b.WriteString(`.SH NAME
splashctl \- display localized boot status messages on the splash screen
`)
}

func writeSynopsis(b *strings.Builder) {
	b.WriteString(`.SH SYNOPSIS
.B splashctl
[\fIOPTIONS\fR]
.I message_id locales
.br
.B splashctl
[\fIOPTIONS\fR]
.B show_message
.I message_id locales
.br
.B splashctl
[\fIOPTIONS\fR]
.B show_file
.I name path
.br
.B splashctl
[\fIOPTIONS\fR]
.B show_spinner
.I name path
.br
.B splashctl
[\fIOPTIONS\fR]
.B update_progress
.I name percent
.br
.B splashctl
[\fIOPTIONS\fR]
.B action
.I name
`)
}

func writeDescription(b *strings.Builder) {
	b.WriteString(`.SH DESCRIPTION
.B splashctl
shows status messages on the boot splash screen. It renders a localized
markup message to an image with pango\-view(1), then hands the image to the
frecon(1) compositor for display. Message identifiers map to per\-locale
markup files shipped under the message directory; the first locale in the
requested list that has the message wins.
.PP
Messages come in two kinds:
.IP \(bu 2
.B Static
messages replace whatever is currently on screen. When a compositor
instance is already up, the image is swapped in place without restarting
it.
.IP \(bu 2
.B Spinner
messages additionally play a frame animation over the image. Showing one
always restarts the compositor so the animation starts clean.
.PP
A progress bar can be drawn over the current message with
.BR update_progress .
The bar is sized from the background image width, so it scales with the
panel resolution.
.PP
When the compositor binary is not installed and the framebuffer fallback
is enabled in the configuration, splashctl draws images and progress
directly to the framebuffer device instead.
`)
}

func writeCommands(b *strings.Builder) {
	b.WriteString(`.SH COMMANDS
`)

	commands := []struct {
		name string
		args string
		desc string
	}{
		{"show_message", "MESSAGE_ID LOCALES", "Render the named message and display it. LOCALES is a space-separated list of locale directories, most preferred first. Markup files are resolved as MESSAGE_DIR/LOCALE/MESSAGE_ID.txt. The message kind (static or spinner) is derived from MESSAGE_ID."},
		{"show_file", "NAME PATH", "Display an arbitrary file. Images (\\&.png, \\&.jpg, \\&.jpeg) are shown directly, downscaled to the background width when wider; any other file is treated as markup and rendered first. NAME selects the message kind the same way show_message does."},
		{"show_spinner", "NAME PATH", "Like show_file, but always treats the message as a spinner message, restarting the compositor with the spinner animation regardless of NAME."},
		{"update_progress", "NAME PERCENT", "Draw a progress bar at PERCENT (0\\-100, clamped) over the current message. NAME keeps the invocation shape of show_file and is otherwise ignored. Requires a readable background image to size the bar. If the compositor terminal device is gone the update is silently skipped."},
		{"action", "NAME", "Run a maintenance action. The only action is restore_frecon, which stops the message compositor and hands the console back; with a dev\\-mode marker file present a bare compositor is relaunched so the developer console returns."},
	}

	for _, c := range commands {
		b.WriteString(".TP\n")
		fmt.Fprintf(b, ".BR %s \" \\fI%s\\fR\"\n", roffEscape(c.name), c.args)
		b.WriteString(c.desc + "\n")
	}

	b.WriteString(`.PP
A bare invocation with two arguments,
.BR "splashctl MESSAGE_ID LOCALES" ,
is shorthand for
.BR show_message .
`)
}

func writeOptions(b *strings.Builder) {
	b.WriteString(`.SH OPTIONS
`)

	flags := []struct {
		flag string
		arg  string
		desc string
	}{
		{"config", "PATH", "Path to the YAML configuration file. Default: /etc/splashctl/config\\&.yaml. A missing file is not an error; built-in defaults are used."},
		{"diagnose", "", "Check the display stack and report what is installed, running, and reachable: the text renderer, the compositor and its terminal device, message and spinner assets, and the framebuffer fallback. Exit code 0 means everything checks out."},
		{"man", "", "Print this man page to stdout in roff format. Pipe to man(1) for formatted viewing: \\fBsplashctl \\-man | man \\-l \\-\\fR."},
		{"preview", "", "Preview a message in the terminal instead of displaying it on the splash screen. Takes the same MESSAGE_ID and optional LOCALES arguments as show_message and opens an interactive view with a simulated spinner and progress bar."},
		{"verbose", "", "Enable verbose (debug-level) logging to stderr."},
		{"version", "", "Print the version, commit hash, and build date, then exit."},
	}

	for _, f := range flags {
		b.WriteString(".TP\n")
		if f.arg != "" {
			fmt.Fprintf(b, ".BR \\-%s \" \\fI%s\\fR\"\n", f.flag, f.arg)
		} else {
			fmt.Fprintf(b, ".B \\-%s\n", f.flag)
		}
		b.WriteString(f.desc + "\n")
	}
}

func writeConfiguration(b *strings.Builder) {
	b.WriteString(`.SH CONFIGURATION
Configuration is read from a YAML file at
.B /etc/splashctl/config\&.yaml
by default, or from the path specified with \fB\-config\fR. Every key has
a built\-in default, so the file only needs the keys being changed.
.PP
The configuration file is organized into the following top-level sections:
.SS render
.TP
.B renderer_bin
Text renderer executable name or path. Default: "pango\-view".
.TP
.B font_name
Font family passed to the renderer. Default: "Noto Sans".
.TP
.B font_size_pt
Font size in points. Default: 13.
.TP
.B margin_px
Margin around rendered text in pixels. Default: 8.
.TP
.B dpi
Rendering resolution in dots per inch. Default: 72.
.TP
.B text_color
Foreground color name or spec understood by the renderer. Default: "Black".
.TP
.B background_rgb
Background color as six hex digits (rrggbb). Default: "fefefe".
.TP
.B locale
Fallback locale when the caller supplies none. Default: "en\-US".
.TP
.B extra_args
Additional flags passed through to the renderer verbatim.
.SS compositor
.TP
.B compositor_bin
Compositor executable name or path. Default: "frecon".
.TP
.B device_dir
Directory where the compositor creates terminal devices. Default: "/run/frecon".
.TP
.B spinner_interval_ms
Spinner frame interval in milliseconds. Default: 100.
.TP
.B remap_vts
How many legacy virtual terminals to remap onto compositor devices after a
restore. Zero disables remapping. Default: 2.
.SS progress
.TP
.B bar_rgb
Progress bar color as six hex digits (rrggbb). Default: "2d81fa".
.TP
.B divisor
Divides the background width to obtain the bar width. Default: 2.
.SS assets
.TP
.B message_dir
Directory holding per\-locale message subdirectories.
Default: /usr/share/splashctl/messages.
.TP
.B spinner_dir
Directory holding spinner animation frames.
Default: /usr/share/splashctl/images/spinner.
.TP
.B background_path
Full\-screen background image shown behind messages.
Default: /usr/share/splashctl/images/background\&.png.
.SS runtime
.TP
.B run_dir
Directory for lock and state files. Default: /run/splashctl.
.TP
.B image_dir
Scratch directory for rendered images. Default: the system temp directory.
.TP
.B log_tag
Tag attached to every log record. Default: "splashctl".
.TP
.B dev_mode_file
Marker file whose presence makes restore_frecon relaunch a bare
compositor for the developer console. Default: /run/splashctl/dev\-mode.
.SS fallback
.TP
.B framebuffer
Enable drawing straight to the framebuffer device when the compositor
binary is not installed. Default: false.
.TP
.B framebuffer_dev
Framebuffer device node. Default: /dev/fb0.
`)
}

func writeFiles(b *strings.Builder) {
	b.WriteString(`.SH FILES
.TP
.I /etc/splashctl/config\&.yaml
Primary configuration file (YAML).
.TP
.I /usr/share/splashctl/messages/
Per\-locale message markup, one subdirectory per locale.
.TP
.I /usr/share/splashctl/images/background\&.png
Background image; its width also sizes the progress bar.
.TP
.I /usr/share/splashctl/images/spinner/
Spinner animation frames, played in sorted order.
.TP
.I /run/splashctl/display\&.lock
Lock file serializing concurrent display operations.
.TP
.I /run/splashctl/message\-displayed
Indicator file created once a message has reached the screen.
.TP
.I /run/frecon/vt0
Compositor terminal device that display directives are written to.
.TP
.I /dev/fb0
Framebuffer device used by the fallback path.
`)
}

func writeExamples(b *strings.Builder) {
	b.WriteString(`.SH EXAMPLES
Show a firmware update spinner message, preferring German:
.PP
.nf
splashctl show_message update_firmware "de en\-US"
.fi
.PP
The same message using the bare shorthand:
.PP
.nf
splashctl update_firmware "de en\-US"
.fi
.PP
Advance the progress bar while flashing:
.PP
.nf
splashctl update_progress update_firmware 40
splashctl update_progress update_firmware 80
splashctl update_progress update_firmware 100
.fi
.PP
Show a one\-off image file as a static message:
.PP
.nf
splashctl show_file self_repair /tmp/repair\&.png
.fi
.PP
Hand the console back when the update is done:
.PP
.nf
splashctl action restore_frecon
.fi
.PP
Preview a message in the terminal without touching the display:
.PP
.nf
splashctl \-preview update_firmware
.fi
.PP
Check the display stack on a new image:
.PP
.nf
splashctl \-diagnose
.fi
.PP
View this man page:
.PP
.nf
splashctl \-man | man \-l \-
.fi
`)
}

func writeEnvironment(b *strings.Builder) {
	b.WriteString(`.SH ENVIRONMENT
Every configuration key can be overridden with an environment variable
named after the flat key, prefixed with SPLASHCTL_. Variables override
both the built\-in defaults and the configuration file. Notable ones:
.TP
.B SPLASHCTL_RENDERER_BIN
Text renderer executable.
.TP
.B SPLASHCTL_COMPOSITOR_BIN
Compositor executable.
.TP
.B SPLASHCTL_DEVICE_DIR
Compositor terminal device directory.
.TP
.B SPLASHCTL_MESSAGE_DIR
Message markup directory.
.TP
.B SPLASHCTL_BACKGROUND_PATH
Background image path.
.TP
.B SPLASHCTL_RUN_DIR
Lock and state directory.
.TP
.B SPLASHCTL_LOCALE
Fallback locale.
.TP
.B SPLASHCTL_FALLBACK_FRAMEBUFFER
Set to "true" to enable the framebuffer fallback.
`)
}

func writeExitStatus(b *strings.Builder) {
	b.WriteString(".SH EXIT STATUS\n")
	b.WriteString(".TP\n.B 0\n")
	b.WriteString("Success. For \\fB\\-diagnose\\fR, indicates all checks passed.\n")
	b.WriteString(".TP\n.B 1\n")
	b.WriteString("Failure. Command errors and usage errors; for \\fB\\-diagnose\\fR, at least one check failed.\n")
}

func writeSeeAlso(b *strings.Builder) {
	b.WriteString(`.SH SEE ALSO
.BR frecon (1),
.BR pango\-view (1),
.BR man (1)
`)
}

func writeAuthors(b *strings.Builder) {
	b.WriteString(`.SH AUTHORS
Tinyland Lab <https://gitlab.com/tinyland/lab>
`)
}

func writeBugs(b *strings.Builder) {
	b.WriteString(`.SH BUGS
Report bugs at <https://gitlab.com/tinyland/lab/splashctl/\-/issues>.
`)
}

func writeFooter(b *strings.Builder, version, commit, date string) {
	fmt.Fprintf(b, ".SH VERSION\n%s (%s) built %s\n", version, commit, date)
}
