package e2e

import (
	"context"
	"encoding/json"
	"net"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/soyle-app/soyle/internal/capture"
	"github.com/soyle-app/soyle/internal/detector"
	"github.com/soyle-app/soyle/internal/gesture"
	"github.com/soyle-app/soyle/internal/phrases"
	"github.com/soyle-app/soyle/internal/server"
	"github.com/soyle-app/soyle/internal/store"
	"github.com/soyle-app/soyle/internal/stream"
)

type recordingSpeaker struct {
	mu      sync.Mutex
	phrases []string
}

func (s *recordingSpeaker) Speak(phrase string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phrases = append(s.phrases, phrase)
}

func (s *recordingSpeaker) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.phrases...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// TestE2E_GestureToSpeech runs a server and a client over loopback TCP: the
// server streams camera frames, the client sees a held fist and the server
// speaks its phrase exactly once.
func TestE2E_GestureToSpeech(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	frame := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer frame.Close()
	cam := capture.NewMockCamera([]*gocv.Mat{&frame}, true)
	if err := cam.Open(); err != nil {
		t.Fatal(err)
	}

	base, err := phrases.Builtin("en", phrases.Basic)
	if err != nil {
		t.Fatal(err)
	}
	book := phrases.NewBook(base)
	speaker := &recordingSpeaker{}
	rec := stream.NewStoreRecorder(s)

	srv := stream.NewServer(stream.ServerConfig{
		Source:       capture.NewJPEGSource(cam, 70, true),
		FPS:          30,
		Phrases:      book,
		Speaker:      speaker,
		WriteTimeout: time.Second,
		Recorder:     rec,
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ctx, ln) }()

	det := detector.NewMockDetector()
	det.SetHands([]detector.HandLandmarks{detector.FistLandmarks()})
	hub := server.NewHub()

	client := stream.NewClient(stream.ClientConfig{
		Addr:         ln.Addr().String(),
		DialTimeout:  time.Second,
		WriteTimeout: time.Second,
		MaxFrameSize: 1 << 20,
		Detector:     det,
		Sink:         hub,
		Recorder:     rec,
	})
	clientErr := make(chan error, 1)
	go func() { clientErr <- client.Run(ctx) }()

	waitFor(t, "the fist phrase", func() bool { return len(speaker.all()) == 1 })

	if got := speaker.all(); got[0] != "Help" {
		t.Errorf("spoken = %v, want [Help]", got)
	}
	if st := client.Stats(); st.Status != gesture.Fist || st.LastSent != gesture.Fist || st.FramesRead == 0 {
		t.Errorf("client stats = %+v", st)
	}
	if st := srv.Status(); !st.Connected || st.LastSpoken != gesture.Fist || st.FramesSent == 0 {
		t.Errorf("server status = %+v", st)
	}
	if last, ok := hub.Last(); !ok || last.Stable != gesture.Fist {
		t.Errorf("hub last = %+v, %v", last, ok)
	}

	// Holding the pose never repeats the phrase.
	time.Sleep(300 * time.Millisecond)
	if n := len(speaker.all()); n != 1 {
		t.Errorf("spoken %d phrases while holding the pose, want 1", n)
	}

	cancel()
	for name, ch := range map[string]chan error{"client": clientErr, "server": serveErr} {
		select {
		case err := <-ch:
			if err != nil {
				t.Errorf("%s returned %v, want nil on shutdown", name, err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("%s did not stop", name)
		}
	}

	// The debug API serves what was recorded.
	ts := httptest.NewServer(server.New(server.Config{Store: s}))
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/events")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var events struct {
		Events []struct {
			Label     string `json:"label"`
			Phrase    string `json:"phrase"`
			Source    string `json:"source"`
			SessionID string `json:"session_id"`
		} `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		t.Fatal(err)
	}
	if len(events.Events) != 1 {
		t.Fatalf("events = %+v, want one", events.Events)
	}
	ev := events.Events[0]
	if ev.Label != "FIST" || ev.Phrase != "Help" || ev.Source != stream.SourceRemote || ev.SessionID == "" {
		t.Errorf("event = %+v", ev)
	}

	sessions, err := s.Sessions().List(10)
	if err != nil {
		t.Fatal(err)
	}
	roles := map[string]string{}
	for _, sess := range sessions {
		roles[sess.Role] = sess.EndReason
	}
	if len(sessions) != 2 || roles[stream.RoleServer] == "" || roles[stream.RoleClient] == "" {
		t.Errorf("sessions = %+v", roles)
	}
}

// TestE2E_ManualOverride drives the server from a detector-less client, the
// way the keyboard panel does.
func TestE2E_ManualOverride(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	speaker := &recordingSpeaker{}
	srv := stream.NewServer(stream.ServerConfig{
		Phrases:  phrases.Table{gesture.OK: "Okay", gesture.Peace: "Thank you"},
		Speaker:  speaker,
		Cooldown: 50 * time.Millisecond,
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx, ln)

	client := stream.NewClient(stream.ClientConfig{Addr: ln.Addr().String(), DialTimeout: time.Second})
	go client.Run(ctx)

	waitFor(t, "the connection", func() bool { return srv.Status().Connected && client.Status() != gesture.Connecting })

	if !client.Override(gesture.OK) {
		t.Fatal("Override(OK) rejected")
	}
	waitFor(t, "OK", func() bool { return len(speaker.all()) == 1 })

	time.Sleep(100 * time.Millisecond)
	client.Override(gesture.Peace)
	waitFor(t, "PEACE", func() bool { return len(speaker.all()) == 2 })

	if got := speaker.all(); got[0] != "Okay" || got[1] != "Thank you" {
		t.Errorf("spoken = %v", got)
	}
	if client.Override(gesture.NoHand) {
		t.Error("meta labels must not be accepted as overrides")
	}
}
