package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/soypat/shaderpad/frame"
)

// startEditor polls the source file and feeds its content to the driver on every change.
// The driver compiles it on the next frame when auto-recompile is enabled.
func startEditor(ctx context.Context, d *frame.Driver, f flags, logger *log.Logger) {
	if f.source == "" || f.poll <= 0 {
		return
	}
	go watchSource(ctx, d, f.source, f.poll, logger)
}

func watchSource(ctx context.Context, d *frame.Driver, name string, poll time.Duration, logger *log.Logger) {
	var lastMod time.Time
	if info, err := os.Stat(name); err == nil {
		lastMod = info.ModTime()
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		info, err := os.Stat(name)
		if err != nil {
			logger.Println("editor:", err)
			continue
		} else if !info.ModTime().After(lastMod) {
			continue
		}
		lastMod = info.ModTime()
		b, err := os.ReadFile(name)
		if err != nil {
			logger.Println("editor:", err)
			continue
		}
		d.SetSource(string(b))
	}
}
