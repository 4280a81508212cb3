// Package splash is the top-level display orchestrator: it locates and
// renders message resources, decides restart versus in-place update through
// the compositor lifecycle manager, and draws the boot progress bar.
package splash

import (
	"path/filepath"
	"strings"

	"gitlab.com/tinyland/lab/splashctl/compositor"
)

// spinnerMessages are the message identifiers displayed with the cycling
// spinner overlay. Firmware updates run long enough that a static screen
// reads as a hang.
var spinnerMessages = map[string]bool{
	"update_firmware":                 true,
	"update_detachable_base_firmware": true,
	"update_fingerprint_firmware":     true,
	"update_touchpad_firmware":        true,
	"update_touchscreen_firmware":     true,
}

// ClassifyMessage resolves a message identifier to its display category.
// Unknown identifiers are static.
func ClassifyMessage(id string) compositor.Category {
	if spinnerMessages[id] {
		return compositor.CategorySpinner
	}
	return compositor.CategoryStatic
}

// SourceKind tells how a show_file path is displayed.
type SourceKind int

const (
	// SourceMarkup is rendered through the text renderer.
	SourceMarkup SourceKind = iota
	// SourceImage is displayed directly, skipping the renderer.
	SourceImage
)

// imageExtensions are the raster formats displayed without rendering.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// ClassifySource resolves a file path to its source kind once, at the
// orchestration boundary.
func ClassifySource(path string) SourceKind {
	if imageExtensions[strings.ToLower(filepath.Ext(path))] {
		return SourceImage
	}
	return SourceMarkup
}
