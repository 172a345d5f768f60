package chat

import "strings"

// completionSink receives answer text for one turn. The streaming sink
// pushes every increment into the visible window as it arrives; the
// whole-response sink only writes once the full answer is known.
type completionSink interface {
	onComplete(full string)
}

type streamSink struct {
	orc     *Orchestrator
	turnID  string
	onDelta func(turnID, answer string)
	buf     strings.Builder
}

func (s *streamSink) onDeltaText(delta string) {
	s.buf.WriteString(delta)
	answer := s.buf.String()
	s.orc.setAnswer(s.turnID, answer)
	if s.onDelta != nil {
		s.onDelta(s.turnID, answer)
	}
}

func (s *streamSink) onComplete(full string) {
	s.orc.setAnswer(s.turnID, full)
}

type wholeSink struct {
	orc    *Orchestrator
	turnID string
}

func (s wholeSink) onComplete(full string) {
	s.orc.setAnswer(s.turnID, full)
}
