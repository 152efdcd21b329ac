package keypad

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/soyle-app/soyle/internal/gesture"
	"github.com/soyle-app/soyle/internal/stream"
)

type fakeSender struct {
	sent  []gesture.Label
	full  bool
	stats stream.ClientStats
}

func (s *fakeSender) Override(label gesture.Label) bool {
	if s.full {
		return false
	}
	s.sent = append(s.sent, label)
	return true
}

func (s *fakeSender) Stats() stream.ClientStats {
	return s.stats
}

func press(m tea.Model, key string) tea.Model {
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
	return m
}

func TestBindings(t *testing.T) {
	seen := make(map[gesture.Label]bool)
	keys := make(map[string]bool)
	for _, b := range Bindings {
		if !b.Label.IsPose() {
			t.Errorf("key %q maps to non-pose %s", b.Key, b.Label)
		}
		if keys[b.Key] {
			t.Errorf("key %q bound twice", b.Key)
		}
		keys[b.Key] = true
		seen[b.Label] = true
	}
	for _, p := range gesture.Poses() {
		if !seen[p] {
			t.Errorf("no key for %s", p)
		}
	}
}

func TestModel_KeyPresses(t *testing.T) {
	tests := []struct {
		key  string
		want gesture.Label
	}{
		{"f", gesture.Fist},
		{"5", gesture.Palm},
		{"2", gesture.Peace},
		{"l", gesture.LShape},
		{"c", gesture.CallMe},
		{"d", gesture.ThumbDown},
		{"s", gesture.Pinch},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			s := &fakeSender{}
			m := press(New(s, "127.0.0.1:8485"), tt.key)

			if len(s.sent) != 1 || s.sent[0] != tt.want {
				t.Errorf("sent = %v, want [%s]", s.sent, tt.want)
			}
			last, dropped := m.(Model).Last()
			if last != tt.want || dropped {
				t.Errorf("Last() = %s, %v", last, dropped)
			}
		})
	}
}

func TestModel_RepeatsAreSent(t *testing.T) {
	s := &fakeSender{}
	var m tea.Model = New(s, "")
	m = press(m, "f")
	m = press(m, "f")
	if len(s.sent) != 2 {
		t.Errorf("sent = %v, want two FIST commands", s.sent)
	}
}

func TestModel_UnboundKey(t *testing.T) {
	s := &fakeSender{}
	m := press(New(s, ""), "z")
	if len(s.sent) != 0 {
		t.Errorf("unbound key sent %v", s.sent)
	}
	if last, _ := m.(Model).Last(); last != "" {
		t.Errorf("Last() = %s, want none", last)
	}
}

func TestModel_Dropped(t *testing.T) {
	s := &fakeSender{full: true}
	m := press(New(s, ""), "o")
	last, dropped := m.(Model).Last()
	if last != gesture.OK || !dropped {
		t.Errorf("Last() = %s, %v; want OK dropped", last, dropped)
	}
	if !strings.Contains(m.View(), "dropped") {
		t.Error("view should mention the dropped command")
	}
}

func TestModel_Quit(t *testing.T) {
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyCtrlC},
		{Type: tea.KeyEsc},
	} {
		t.Run(key.String(), func(t *testing.T) {
			_, cmd := New(&fakeSender{}, "").Update(key)
			if cmd == nil {
				t.Fatal("expected a quit command")
			}
			if _, ok := cmd().(tea.QuitMsg); !ok {
				t.Error("command is not tea.Quit")
			}
		})
	}
}

func TestModel_View(t *testing.T) {
	s := &fakeSender{stats: stream.ClientStats{Status: gesture.Connecting}}
	m := New(s, "10.0.0.1:8485")
	view := m.View()
	for _, want := range []string{"10.0.0.1:8485", "connecting", "last: none", "FIST", "THUMB_DOWN"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	s.stats = stream.ClientStats{Status: gesture.NoHand, FramesRead: 12, Sent: 3}
	next, cmd := m.Update(tickMsg{})
	if cmd == nil {
		t.Error("tick should schedule the next refresh")
	}
	view = next.View()
	if !strings.Contains(view, "connected") || !strings.Contains(view, "sent 3") {
		t.Errorf("view after refresh:\n%s", view)
	}
}
