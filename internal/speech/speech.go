// Package speech reads answers aloud through the platform's speech
// synthesizer, one utterance at a time.
package speech

import (
	"os/exec"
	"runtime"
	"sync"

	"quill/internal/logger"
)

// Synth speaks text via the system synthesizer. Starting a new
// utterance always interrupts the previous one first.
type Synth struct {
	mu  sync.Mutex
	cmd *exec.Cmd
}

func New() *Synth {
	return &Synth{}
}

func speechCommand(text string) *exec.Cmd {
	if runtime.GOOS == "darwin" {
		return exec.Command("say", text)
	}
	return exec.Command("espeak", text)
}

// Speak starts reading text in the background. Failure to launch the
// synthesizer is logged and otherwise ignored.
func (s *Synth) Speak(text string) {
	if text == "" {
		return
	}
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	cmd := speechCommand(text)
	if err := cmd.Start(); err != nil {
		logger.Warn("speech synthesizer unavailable", "error", err)
		return
	}
	s.cmd = cmd
	go func() {
		_ = cmd.Wait()
		s.mu.Lock()
		if s.cmd == cmd {
			s.cmd = nil
		}
		s.mu.Unlock()
	}()
}

// Stop interrupts the current utterance, if any.
func (s *Synth) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	s.cmd = nil
}
