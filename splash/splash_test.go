package splash

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gitlab.com/tinyland/lab/splashctl/compositor"
	"gitlab.com/tinyland/lab/splashctl/geometry"
	"gitlab.com/tinyland/lab/splashctl/raster"
	"gitlab.com/tinyland/lab/splashctl/render"
)

type startCall struct {
	category compositor.Category
	message  raster.Bitmap
	frames   []string
}

type fakeSession struct {
	state     compositor.State
	starts    []startCall
	updates   []raster.Bitmap
	marks     int
	restores  int
	startErr  error
	updateErr error
}

func (f *fakeSession) Probe() compositor.State { return f.state }

func (f *fakeSession) Start(_ context.Context, category compositor.Category, message raster.Bitmap, frames []string) (*compositor.Handle, error) {
	f.starts = append(f.starts, startCall{category: category, message: message, frames: frames})
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &compositor.Handle{PID: 42}, nil
}

func (f *fakeSession) UpdateInPlace(message raster.Bitmap) error {
	f.updates = append(f.updates, message)
	return f.updateErr
}

func (f *fakeSession) MarkDisplayed() error { f.marks++; return nil }

func (f *fakeSession) Restore(context.Context) error { f.restores++; return nil }

type renderCall struct {
	src            render.Source
	referenceWidth int
}

type fakeRenderer struct {
	calls []renderCall
	path  string
	err   error
}

func (f *fakeRenderer) RenderFitted(_ context.Context, src render.Source, referenceWidth int) (raster.Bitmap, error) {
	f.calls = append(f.calls, renderCall{src: src, referenceWidth: referenceWidth})
	if f.err != nil {
		return raster.Bitmap{}, f.err
	}
	return raster.Bitmap{Path: f.path}, nil
}

type boxCall struct {
	rgb  string
	rect geometry.Rect
}

type fakePainter struct {
	boxes []boxCall
	err   error
}

func (f *fakePainter) DrawBox(rgb string, rect geometry.Rect) error {
	if f.err != nil {
		return f.err
	}
	f.boxes = append(f.boxes, boxCall{rgb: rgb, rect: rect})
	return nil
}

type controllerHarness struct {
	controller *Controller
	session    *fakeSession
	renderer   *fakeRenderer
	painter    *fakePainter
	dir        string
}

func writeTestPNG(t *testing.T, path string, width, height int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, width, height))); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func writeMessage(t *testing.T, messageDir, locale, id, text string) string {
	t.Helper()
	path := filepath.Join(messageDir, locale, id+".txt")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir message dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("write message: %v", err)
	}
	return path
}

// newTestController wires a controller to fakes with a live, running
// compositor and a 960px reference background.
func newTestController(t *testing.T) *controllerHarness {
	t.Helper()
	dir := t.TempDir()
	background := filepath.Join(dir, "background.png")
	writeTestPNG(t, background, 960, 540)

	config := Config{
		MessageDir:      filepath.Join(dir, "messages"),
		SpinnerDir:      filepath.Join(dir, "spinner"),
		BackgroundPath:  background,
		BackgroundRGB:   "fefefe",
		ProgressBarRGB:  "2d81fa",
		ProgressDivisor: 2,
		ImageDir:        dir,
		DefaultLocale:   "en-US",
		LockPath:        filepath.Join(dir, "display.lock"),
	}
	session := &fakeSession{state: compositor.State{ProcessRunning: true, DeviceLive: true}}
	renderer := &fakeRenderer{path: filepath.Join(dir, "rendered.png")}
	painter := &fakePainter{}
	controller := &Controller{
		config:   config,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		renderer: renderer,
		session:  session,
		painter:  painter,
		lock:     NewFileLock(config.LockPath),
	}
	return &controllerHarness{
		controller: controller,
		session:    session,
		renderer:   renderer,
		painter:    painter,
		dir:        dir,
	}
}

func TestDisplayMessageLocaleOrder(t *testing.T) {
	h := newTestController(t)
	path := writeMessage(t, h.controller.config.MessageDir, "fr-FR", "update_firmware", "<span>Mise à jour</span>")

	err := h.controller.DisplayMessage(context.Background(), "update_firmware", []string{"en-US", "fr-FR"})
	if err != nil {
		t.Fatalf("DisplayMessage: %v", err)
	}
	if len(h.renderer.calls) != 1 {
		t.Fatalf("renderer called %d times, want 1", len(h.renderer.calls))
	}
	call := h.renderer.calls[0]
	if call.src.Locale != "fr-FR" {
		t.Errorf("rendered locale = %q, want fr-FR", call.src.Locale)
	}
	if call.src.Path != path {
		t.Errorf("rendered path = %q, want %q", call.src.Path, path)
	}
	if !call.src.Markup {
		t.Error("message source not rendered as markup")
	}
	if h.session.marks != 1 {
		t.Errorf("displayed indicator marked %d times, want 1", h.session.marks)
	}
}

func TestDisplayMessageFirstLocaleWins(t *testing.T) {
	h := newTestController(t)
	writeMessage(t, h.controller.config.MessageDir, "en-US", "update_firmware", "Updating firmware")
	writeMessage(t, h.controller.config.MessageDir, "fr-FR", "update_firmware", "Mise à jour")

	err := h.controller.DisplayMessage(context.Background(), "update_firmware", []string{"en-US", "fr-FR"})
	if err != nil {
		t.Fatalf("DisplayMessage: %v", err)
	}
	if got := h.renderer.calls[0].src.Locale; got != "en-US" {
		t.Errorf("rendered locale = %q, want en-US", got)
	}
}

func TestDisplayMessageNotFound(t *testing.T) {
	h := newTestController(t)

	err := h.controller.DisplayMessage(context.Background(), "update_firmware", []string{"en-US", "fr-FR"})
	if !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("error = %v, want ErrMessageNotFound", err)
	}
	if len(h.renderer.calls) != 0 {
		t.Errorf("renderer called %d times for missing message", len(h.renderer.calls))
	}
	if len(h.session.starts) != 0 || len(h.session.updates) != 0 {
		t.Error("compositor touched for missing message")
	}
}

func TestDisplayMessageFailureDoesNotFallThrough(t *testing.T) {
	h := newTestController(t)
	writeMessage(t, h.controller.config.MessageDir, "fr-FR", "update_firmware", "Mise à jour")
	writeMessage(t, h.controller.config.MessageDir, "en-US", "update_firmware", "Updating firmware")
	h.renderer.err = fmt.Errorf("%w: font missing", render.ErrRender)

	err := h.controller.DisplayMessage(context.Background(), "update_firmware", []string{"fr-FR", "en-US"})
	if !errors.Is(err, render.ErrRender) {
		t.Fatalf("error = %v, want render failure", err)
	}
	if len(h.renderer.calls) != 1 {
		t.Fatalf("renderer called %d times, want 1 (no retry with next locale)", len(h.renderer.calls))
	}
	if got := h.renderer.calls[0].src.Locale; got != "fr-FR" {
		t.Errorf("rendered locale = %q, want fr-FR", got)
	}
	if h.session.marks != 0 {
		t.Error("displayed indicator marked after render failure")
	}
}

func TestDisplayMessagePassesReferenceWidth(t *testing.T) {
	h := newTestController(t)
	writeMessage(t, h.controller.config.MessageDir, "en-US", "self_repair", "Repairing")

	if err := h.controller.DisplayMessage(context.Background(), "self_repair", []string{"en-US"}); err != nil {
		t.Fatalf("DisplayMessage: %v", err)
	}
	if got := h.renderer.calls[0].referenceWidth; got != 960 {
		t.Errorf("reference width = %d, want 960", got)
	}
}

func TestDisplayMessageNoBackground(t *testing.T) {
	h := newTestController(t)
	h.controller.config.BackgroundPath = filepath.Join(h.dir, "missing.png")
	writeMessage(t, h.controller.config.MessageDir, "en-US", "self_repair", "Repairing")

	if err := h.controller.DisplayMessage(context.Background(), "self_repair", []string{"en-US"}); err != nil {
		t.Fatalf("DisplayMessage: %v", err)
	}
	if got := h.renderer.calls[0].referenceWidth; got != 0 {
		t.Errorf("reference width = %d, want 0 without background", got)
	}
}

func TestDisplayMessageDefaultLocale(t *testing.T) {
	h := newTestController(t)
	writeMessage(t, h.controller.config.MessageDir, "en-US", "self_repair", "Repairing")

	if err := h.controller.DisplayMessage(context.Background(), "self_repair", nil); err != nil {
		t.Fatalf("DisplayMessage: %v", err)
	}
	if got := h.renderer.calls[0].src.Locale; got != "en-US" {
		t.Errorf("rendered locale = %q, want default en-US", got)
	}
}

func TestStaticMessageUpdatesInPlace(t *testing.T) {
	h := newTestController(t)
	writeMessage(t, h.controller.config.MessageDir, "en-US", "self_repair", "Repairing")

	if err := h.controller.DisplayMessage(context.Background(), "self_repair", []string{"en-US"}); err != nil {
		t.Fatalf("DisplayMessage: %v", err)
	}
	if len(h.session.starts) != 0 {
		t.Error("compositor restarted while live for a static message")
	}
	if len(h.session.updates) != 1 {
		t.Fatalf("in-place updates = %d, want 1", len(h.session.updates))
	}
	if got := h.session.updates[0].Path; got != h.renderer.path {
		t.Errorf("updated bitmap = %q, want %q", got, h.renderer.path)
	}
	if h.session.marks != 1 {
		t.Errorf("displayed indicator marked %d times, want 1", h.session.marks)
	}
}

func TestStaticMessageRestartsWhenProcessDown(t *testing.T) {
	h := newTestController(t)
	h.session.state = compositor.State{ProcessRunning: false, DeviceLive: true}
	writeMessage(t, h.controller.config.MessageDir, "en-US", "self_repair", "Repairing")

	if err := h.controller.DisplayMessage(context.Background(), "self_repair", []string{"en-US"}); err != nil {
		t.Fatalf("DisplayMessage: %v", err)
	}
	if len(h.session.starts) != 1 {
		t.Fatalf("starts = %d, want 1", len(h.session.starts))
	}
	if got := h.session.starts[0].category; got != compositor.CategoryStatic {
		t.Errorf("started category = %v, want static", got)
	}
	if h.session.starts[0].frames != nil {
		t.Error("static start carried spinner frames")
	}
}

func TestSpinnerMessageAlwaysRestarts(t *testing.T) {
	h := newTestController(t)
	spinnerDir := h.controller.config.SpinnerDir
	writeTestPNG(t, filepath.Join(spinnerDir, "b03.png"), 48, 48)
	writeTestPNG(t, filepath.Join(spinnerDir, "a01.png"), 48, 48)
	writeTestPNG(t, filepath.Join(spinnerDir, "a02.png"), 48, 48)
	writeMessage(t, h.controller.config.MessageDir, "en-US", "update_firmware", "Updating firmware")

	if err := h.controller.DisplayMessage(context.Background(), "update_firmware", []string{"en-US"}); err != nil {
		t.Fatalf("DisplayMessage: %v", err)
	}
	if len(h.session.updates) != 0 {
		t.Error("spinner message updated in place")
	}
	if len(h.session.starts) != 1 {
		t.Fatalf("starts = %d, want 1", len(h.session.starts))
	}
	start := h.session.starts[0]
	if start.category != compositor.CategorySpinner {
		t.Errorf("started category = %v, want spinner", start.category)
	}
	want := []string{
		filepath.Join(spinnerDir, "a01.png"),
		filepath.Join(spinnerDir, "a02.png"),
		filepath.Join(spinnerDir, "b03.png"),
	}
	if len(start.frames) != len(want) {
		t.Fatalf("frames = %v, want %v", start.frames, want)
	}
	for i := range want {
		if start.frames[i] != want[i] {
			t.Errorf("frame[%d] = %q, want %q", i, start.frames[i], want[i])
		}
	}
}

func TestSpinnerMessageNoFrames(t *testing.T) {
	h := newTestController(t)
	writeMessage(t, h.controller.config.MessageDir, "en-US", "update_firmware", "Updating firmware")

	if err := h.controller.DisplayMessage(context.Background(), "update_firmware", []string{"en-US"}); err != nil {
		t.Fatalf("DisplayMessage: %v", err)
	}
	if len(h.session.starts) != 1 {
		t.Fatalf("starts = %d, want 1", len(h.session.starts))
	}
	if h.session.starts[0].frames != nil {
		t.Errorf("frames = %v, want nil for empty spinner dir", h.session.starts[0].frames)
	}
}

func TestDisplayFileImageDirect(t *testing.T) {
	h := newTestController(t)
	imgPath := filepath.Join(h.dir, "notice.png")
	writeTestPNG(t, imgPath, 400, 200)

	if err := h.controller.DisplayFile(context.Background(), "notice", imgPath); err != nil {
		t.Fatalf("DisplayFile: %v", err)
	}
	if len(h.renderer.calls) != 0 {
		t.Error("renderer invoked for a raster image")
	}
	if len(h.session.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(h.session.updates))
	}
	if got := h.session.updates[0].Path; got != imgPath {
		t.Errorf("displayed %q, want original %q", got, imgPath)
	}
}

func TestDisplayFileImageDownscaled(t *testing.T) {
	h := newTestController(t)
	imgPath := filepath.Join(h.dir, "wide.png")
	writeTestPNG(t, imgPath, 1200, 300)

	if err := h.controller.DisplayFile(context.Background(), "notice", imgPath); err != nil {
		t.Fatalf("DisplayFile: %v", err)
	}
	if len(h.session.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(h.session.updates))
	}
	displayed := h.session.updates[0].Path
	if displayed == imgPath {
		t.Fatal("oversized image displayed without downscaling")
	}
	width, err := raster.Width(displayed)
	if err != nil {
		t.Fatalf("Width(%s): %v", displayed, err)
	}
	if width != 960 {
		t.Errorf("downscaled width = %d, want 960", width)
	}
}

func TestDisplayFileMarkupRendered(t *testing.T) {
	h := newTestController(t)
	srcPath := filepath.Join(h.dir, "notice.txt")
	if err := os.WriteFile(srcPath, []byte("<b>hello</b>"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	if err := h.controller.DisplayFile(context.Background(), "notice", srcPath); err != nil {
		t.Fatalf("DisplayFile: %v", err)
	}
	if len(h.renderer.calls) != 1 {
		t.Fatalf("renderer called %d times, want 1", len(h.renderer.calls))
	}
	call := h.renderer.calls[0]
	if call.src.Path != srcPath {
		t.Errorf("rendered path = %q, want %q", call.src.Path, srcPath)
	}
	if !call.src.Markup {
		t.Error("file source not rendered as markup")
	}
	if call.src.Locale != "" {
		t.Errorf("file source carried locale %q", call.src.Locale)
	}
}

func TestDisplaySpinnerForcesCategory(t *testing.T) {
	h := newTestController(t)
	srcPath := filepath.Join(h.dir, "notice.txt")
	if err := os.WriteFile(srcPath, []byte("working"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	if err := h.controller.DisplaySpinner(context.Background(), "notice", srcPath); err != nil {
		t.Fatalf("DisplaySpinner: %v", err)
	}
	if len(h.session.starts) != 1 {
		t.Fatalf("starts = %d, want 1", len(h.session.starts))
	}
	if got := h.session.starts[0].category; got != compositor.CategorySpinner {
		t.Errorf("category = %v, want spinner", got)
	}
}

func TestUpdateProgressDirectiveSequence(t *testing.T) {
	h := newTestController(t)

	if err := h.controller.UpdateProgress(50); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	want := []boxCall{
		{rgb: "2d81fa", rect: geometry.Rect{W: 480, H: 24, X: 0, Y: 120}},
		{rgb: "fefefe", rect: geometry.Rect{W: 472, H: 16, X: 0, Y: 120}},
		{rgb: "2d81fa", rect: geometry.Rect{W: 236, H: 16, X: -118, Y: 120}},
	}
	if len(h.painter.boxes) != len(want) {
		t.Fatalf("boxes drawn = %d, want %d", len(h.painter.boxes), len(want))
	}
	for i, box := range want {
		if h.painter.boxes[i] != box {
			t.Errorf("box[%d] = %+v, want %+v", i, h.painter.boxes[i], box)
		}
	}
}

func TestUpdateProgressClampsPercent(t *testing.T) {
	h := newTestController(t)

	if err := h.controller.UpdateProgress(150); err != nil {
		t.Fatalf("UpdateProgress(150): %v", err)
	}
	full := geometry.Rect{W: 472, H: 16, X: 0, Y: 120}
	if got := h.painter.boxes[2].rect; got != full {
		t.Errorf("fill at 150%% = %+v, want %+v", got, full)
	}

	h.painter.boxes = nil
	if err := h.controller.UpdateProgress(-10); err != nil {
		t.Fatalf("UpdateProgress(-10): %v", err)
	}
	empty := geometry.Rect{W: 0, H: 16, X: -236, Y: 120}
	if got := h.painter.boxes[2].rect; got != empty {
		t.Errorf("fill at -10%% = %+v, want %+v", got, empty)
	}
}

func TestUpdateProgressDeviceGoneSwallowed(t *testing.T) {
	h := newTestController(t)
	h.painter.err = fmt.Errorf("compositor: open control device: %w", compositor.ErrDeviceUnavailable)

	if err := h.controller.UpdateProgress(30); err != nil {
		t.Fatalf("UpdateProgress with dead device = %v, want nil", err)
	}
}

func TestUpdateProgressOtherErrorPropagates(t *testing.T) {
	h := newTestController(t)
	h.painter.err = errors.New("short write")

	if err := h.controller.UpdateProgress(30); err == nil {
		t.Fatal("UpdateProgress swallowed a write error")
	}
}

func TestUpdateProgressBadBackground(t *testing.T) {
	h := newTestController(t)
	bad := filepath.Join(h.dir, "corrupt.png")
	if err := os.WriteFile(bad, []byte("not a png"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	h.controller.config.BackgroundPath = bad

	err := h.controller.UpdateProgress(30)
	if !errors.Is(err, raster.ErrFormat) {
		t.Fatalf("error = %v, want format error", err)
	}
	if len(h.painter.boxes) != 0 {
		t.Error("boxes drawn despite unreadable background")
	}
}

func TestActionRestore(t *testing.T) {
	h := newTestController(t)

	if err := h.controller.Action(context.Background(), "restore_frecon"); err != nil {
		t.Fatalf("Action: %v", err)
	}
	if h.session.restores != 1 {
		t.Errorf("restores = %d, want 1", h.session.restores)
	}
}

func TestActionUnknown(t *testing.T) {
	h := newTestController(t)

	err := h.controller.Action(context.Background(), "reboot")
	if err == nil {
		t.Fatal("unknown action accepted")
	}
	if !strings.Contains(err.Error(), "unknown action") {
		t.Errorf("error = %v, want unknown action", err)
	}
	if h.session.restores != 0 {
		t.Error("restore ran for unknown action")
	}
}

func TestStartFailurePropagates(t *testing.T) {
	h := newTestController(t)
	h.session.state = compositor.State{}
	h.session.startErr = fmt.Errorf("compositor: wait for control device: %w", compositor.ErrDeviceUnavailable)
	writeMessage(t, h.controller.config.MessageDir, "en-US", "self_repair", "Repairing")

	err := h.controller.DisplayMessage(context.Background(), "self_repair", []string{"en-US"})
	if !errors.Is(err, compositor.ErrDeviceUnavailable) {
		t.Fatalf("error = %v, want device unavailable", err)
	}
	if h.session.marks != 0 {
		t.Error("displayed indicator marked after failed start")
	}
}
