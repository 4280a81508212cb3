package raster

import (
	"fmt"
	"os"

	"github.com/disintegration/imaging"
)

// NormalizeForDisplay makes sure an arbitrary image file fits the reference
// width before it is handed to the compositor, which is launched with
// scaling disabled and would otherwise crop. Images at or under maxWidth are
// returned unchanged. Wider images are downscaled preserving aspect ratio
// and re-encoded as PNG into a fresh uniquely-named file in dir; the
// original is left alone. The new file is not cleaned up here: the
// compositor may read it after this process exits, so it shares the lifetime
// of the scratch directory.
func NormalizeForDisplay(path string, maxWidth int, dir string) (string, error) {
	if maxWidth <= 0 {
		return path, nil
	}

	img, err := imaging.Open(path)
	if err != nil {
		return "", fmt.Errorf("raster: decode %s: %w", path, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= maxWidth {
		return path, nil
	}

	// Fit only constrains width here; the height bound is the scaled
	// height itself so aspect ratio decides it.
	scaled := imaging.Fit(img, maxWidth, bounds.Dy(), imaging.Lanczos)

	out, err := os.CreateTemp(dir, "boot-display-*.png")
	if err != nil {
		return "", fmt.Errorf("raster: create scaled copy: %w", err)
	}
	outPath := out.Name()

	if err := imaging.Encode(out, scaled, imaging.PNG); err != nil {
		out.Close()
		os.Remove(outPath)
		return "", fmt.Errorf("raster: encode scaled copy: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("raster: close scaled copy: %w", err)
	}

	return outPath, nil
}
