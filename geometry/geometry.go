// Package geometry computes pixel placement for the overlay elements drawn
// over the boot background: the spinner position next to a centered message
// and the progress bar rectangles. All functions are pure; offsets are
// relative to the compositor's centered origin, so negative x moves left.
package geometry

// borderPx is the visible border left around the progress bar fill. The
// punch rectangle shrinks the frame by this amount on every side and is
// drawn in the background color, which is what produces the border.
const borderPx = 4

// Rect is a box directive in compositor coordinates: a size plus an offset
// from the centered origin.
type Rect struct {
	W, H int
	X, Y int
}

// ProgressBar holds the three rectangles of a progress bar, drawn in order
// Frame, Punch, Fill so that each later box paints over the previous one.
type ProgressBar struct {
	Frame Rect
	Punch Rect
	Fill  Rect
}

// ClampPercent limits p to the inclusive range [0, 100].
func ClampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// SpinnerOffset returns the horizontal offset that anchors a spinner to the
// left edge of a centered message image: half the message width plus the
// full spinner width, negated. Integer division truncates toward zero, which
// visual regression baselines depend on.
func SpinnerOffset(messageWidth, spinnerWidth int) int {
	return -(messageWidth/2 + spinnerWidth)
}

// Progress derives the progress bar rectangles from the reference background
// width, the configured width divisor, and a percentage. The percentage is
// clamped to [0, 100] first, so out-of-range values behave exactly like the
// nearest boundary. A non-positive divisor is treated as 1, and a frame too
// thin to hold its border collapses the punch and fill to zero size.
func Progress(referenceWidth, divisor, percent int) ProgressBar {
	percent = ClampPercent(percent)
	if divisor <= 0 {
		divisor = 1
	}

	barW := referenceWidth / divisor
	barH := referenceWidth / 40
	yOff := barH * 5

	// A frame thinner than two borders has no interior; collapse the punch
	// and fill to zero instead of emitting negative boxes.
	innerW := max(barW-2*borderPx, 0)
	innerH := max(barH-2*borderPx, 0)
	fillW := (innerW * percent) / 100

	return ProgressBar{
		Frame: Rect{W: barW, H: barH, X: 0, Y: yOff},
		Punch: Rect{W: innerW, H: innerH, X: 0, Y: yOff},
		// Left-align the fill inside the frame: shift it left by half of
		// the unfilled remainder.
		Fill: Rect{W: fillW, H: innerH, X: -(innerW - fillW) / 2, Y: yOff},
	}
}
