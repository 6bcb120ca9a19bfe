// Package chattest provides a recording Messenger for engine tests.
package chattest

import (
	"strings"
	"sync"

	"github.com/nathoo/questbot/types"
)

// Line is one delivered message. Whisper lines carry the recipient and an
// empty channel.
type Line struct {
	Channel string
	To      types.PlayerID
	Text    string
}

// Recorder captures everything sent through it.
type Recorder struct {
	mu    sync.Mutex
	lines []Line
}

// SendMessage implements types.Messenger.
func (r *Recorder) SendMessage(channelID, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, Line{Channel: channelID, Text: text})
}

// SendWhisper implements types.Messenger.
func (r *Recorder) SendWhisper(p types.PlayerID, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, Line{To: p, Text: text})
}

// Lines returns a copy of everything recorded.
func (r *Recorder) Lines() []Line {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Line(nil), r.lines...)
}

// Messages returns channel message texts in order.
func (r *Recorder) Messages() []string {
	var out []string
	for _, l := range r.Lines() {
		if l.To == "" {
			out = append(out, l.Text)
		}
	}
	return out
}

// Whispers returns whisper texts sent to p.
func (r *Recorder) Whispers(p types.PlayerID) []string {
	var out []string
	for _, l := range r.Lines() {
		if l.To == p {
			out = append(out, l.Text)
		}
	}
	return out
}

// Last returns the most recent channel message, or "".
func (r *Recorder) Last() string {
	msgs := r.Messages()
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}

// Contains reports whether any channel message contains substr.
func (r *Recorder) Contains(substr string) bool {
	for _, m := range r.Messages() {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = nil
}
