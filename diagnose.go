package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gitlab.com/tinyland/lab/splashctl/compositor"
	"gitlab.com/tinyland/lab/splashctl/config"
	"gitlab.com/tinyland/lab/splashctl/raster"
	"gitlab.com/tinyland/lab/splashctl/render"
)

// runDiagnostics checks every piece of the display stack and reports
// actionable findings. Returns the process exit code.
func runDiagnostics(cfg *config.Config) int {
	fmt.Println("🔍 splashctl Display Diagnostics")
	fmt.Println("============================================================")
	fmt.Println()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn, // Only show warnings during diagnostics
	}))

	failures := 0
	failures += diagnoseRenderer(cfg, logger)
	failures += diagnoseCompositor(cfg, logger)
	failures += diagnoseAssets(cfg)
	diagnoseFallback(cfg)

	fmt.Println("============================================================")
	if failures == 0 {
		fmt.Println("✨ All diagnostics passed! splashctl should work correctly.")
		return 0
	}
	fmt.Printf("⚠️  %d check(s) failed. Boot messages may not display.\n", failures)
	return 1
}

func diagnoseRenderer(cfg *config.Config, logger *slog.Logger) int {
	fmt.Println("🖋  Text Renderer")
	fmt.Println("------------------------------------------------------------")

	renderer := render.New(render.Config{Bin: cfg.Render.RendererBin}, logger)
	if !renderer.IsAvailable() {
		fmt.Printf("   %s: ❌ not found in PATH\n", cfg.Render.RendererBin)
		fmt.Println()
		fmt.Println("💡 Solution: install the renderer or set render.renderer_bin")
		fmt.Println()
		return 1
	}
	fmt.Printf("   %s: ✅ found\n", cfg.Render.RendererBin)
	fmt.Printf("   Font: %s at %d dpi\n", cfg.Font(), cfg.Render.DPI)
	fmt.Println()
	return 0
}

func diagnoseCompositor(cfg *config.Config, logger *slog.Logger) int {
	fmt.Println("🖥  Compositor")
	fmt.Println("------------------------------------------------------------")

	manager := compositor.NewManager(compositor.Config{
		Bin:           cfg.Compositor.CompositorBin,
		DeviceDir:     cfg.Compositor.DeviceDir,
		IndicatorPath: indicatorPath(cfg),
	}, logger)

	failed := 0
	if manager.Available() {
		fmt.Printf("   %s: ✅ found\n", cfg.Compositor.CompositorBin)
	} else {
		fmt.Printf("   %s: ❌ not found in PATH\n", cfg.Compositor.CompositorBin)
		failed++
	}

	state := manager.Probe()
	if state.ProcessRunning {
		proc := compositor.NewProc(logger)
		pids := proc.FindAll(cfg.Compositor.CompositorBin)
		signalable := 0
		for _, pid := range pids {
			if proc.Alive(pid) {
				signalable++
			}
		}
		if signalable == len(pids) {
			fmt.Printf("   Process:   ✅ running %v\n", pids)
		} else {
			fmt.Printf("   Process:   ⚠️  running %v but only %d/%d signalable (restore needs root)\n",
				pids, signalable, len(pids))
		}
	} else {
		fmt.Println("   Process:   ⚠️  not running (will be spawned on demand)")
	}

	devicePath := cfg.DevicePath()
	if state.DeviceLive {
		fmt.Printf("   Device:    ✅ %s is live\n", devicePath)
	} else {
		fmt.Printf("   Device:    ⚠️  %s not live\n", devicePath)
	}

	if state.IndicatorPresent {
		fmt.Printf("   Indicator: present (%s); action restore_frecon will clean up\n", indicatorPath(cfg))
	} else {
		fmt.Println("   Indicator: absent (no message on screen)")
	}

	if compositor.NeedsRestart(compositor.CategoryStatic, state) {
		fmt.Println("   Next static message: would restart the compositor")
	} else {
		fmt.Println("   Next static message: would update in place")
	}

	if failed > 0 {
		fmt.Println()
		fmt.Println("💡 Solution: install the compositor or set compositor.compositor_bin,")
		fmt.Println("   or enable fallback.framebuffer for direct framebuffer output")
	}
	fmt.Println()
	return failed
}

func diagnoseAssets(cfg *config.Config) int {
	fmt.Println("🖼  Assets")
	fmt.Println("------------------------------------------------------------")

	failed := 0
	if width, err := raster.Width(cfg.Assets.BackgroundPath); err != nil {
		fmt.Printf("   Background: ❌ %v\n", err)
		fmt.Println("               (messages render unconstrained, no progress bar)")
		failed++
	} else {
		height, _ := raster.Height(cfg.Assets.BackgroundPath)
		fmt.Printf("   Background: ✅ %s (%dx%d, reference width %dpx)\n",
			cfg.Assets.BackgroundPath, width, height, width)
	}

	entries, err := os.ReadDir(cfg.Assets.MessageDir)
	if err != nil {
		fmt.Printf("   Messages:   ❌ %v\n", err)
		failed++
	} else {
		locales := 0
		for _, entry := range entries {
			if entry.IsDir() {
				locales++
			}
		}
		fmt.Printf("   Messages:   ✅ %s (%d locales)\n", cfg.Assets.MessageDir, locales)
	}

	frames, _ := filepath.Glob(filepath.Join(cfg.Assets.SpinnerDir, "*.png"))
	if len(frames) == 0 {
		fmt.Printf("   Spinner:    ⚠️  no frames in %s (spinner messages show static)\n", cfg.Assets.SpinnerDir)
	} else {
		fmt.Printf("   Spinner:    ✅ %d frames\n", len(frames))
	}

	fmt.Println()
	return failed
}

func diagnoseFallback(cfg *config.Config) {
	fmt.Println("🧯 Framebuffer Fallback")
	fmt.Println("------------------------------------------------------------")

	if !cfg.Fallback.Framebuffer {
		fmt.Println("   Disabled (fallback.framebuffer: false)")
		fmt.Println()
		return
	}
	if _, err := os.Stat(cfg.Fallback.FramebufferDev); err != nil {
		fmt.Printf("   Enabled but %s: ❌ %v\n", cfg.Fallback.FramebufferDev, err)
	} else {
		fmt.Printf("   Enabled, %s: ✅ present\n", cfg.Fallback.FramebufferDev)
	}
	fmt.Println()
}
