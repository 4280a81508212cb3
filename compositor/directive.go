// Package compositor drives the frame-buffer compositor daemon: spawning and
// killing the process, probing its control devices, and writing the
// escape-coded drawing directives it understands.
package compositor

import (
	"fmt"

	"gitlab.com/tinyland/lab/splashctl/geometry"
	"gitlab.com/tinyland/lab/splashctl/internal/hexrgb"
)

// The control channel speaks OSC-style directives:
//
//	\033]image:file=<path>;color=0x<rrggbb>;scale=0\033\\
//	\033]box:color=0x<rrggbb>;size=<w>,<h>;offset=<x>,<y>;scale=0\033\\
//
// Each directive ends with the string terminator (ESC backslash) and must
// reach the device in one write.

// terminator closes every directive.
const terminator = "\033\\"

// ImageDirective encodes a "show image" directive. The image is centered on
// the terminal over the given background color; rgb is six bare hex digits.
func ImageDirective(path, rgb string) string {
	return fmt.Sprintf("\033]image:file=%s;color=%s;scale=0%s",
		path, hexrgb.Hex0x(rgb), terminator)
}

// BoxDirective encodes a "draw box" directive filling rect with rgb. The
// offset is relative to the screen center.
func BoxDirective(rgb string, rect geometry.Rect) string {
	return fmt.Sprintf("\033]box:color=%s;size=%d,%d;offset=%d,%d;scale=0%s",
		hexrgb.Hex0x(rgb), rect.W, rect.H, rect.X, rect.Y, terminator)
}
