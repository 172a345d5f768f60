package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"quill/internal/config"
)

// Log goes to a file instead of stderr so it never bleeds into the TUI.
var std = log.NewWithOptions(io.Discard, log.Options{ReportTimestamp: true})

// Init points the logger at quill.log in the config directory. Before
// Init (or if it fails) all log calls are discarded.
func Init() error {
	dir, err := config.Dir()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(dir, "quill.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	std.SetOutput(f)
	if os.Getenv("QUILL_DEBUG") != "" {
		std.SetLevel(log.DebugLevel)
	}
	return nil
}

func Debug(msg string, kv ...any) { std.Debug(msg, kv...) }
func Info(msg string, kv ...any)  { std.Info(msg, kv...) }
func Warn(msg string, kv ...any)  { std.Warn(msg, kv...) }
func Error(msg string, kv ...any) { std.Error(msg, kv...) }
