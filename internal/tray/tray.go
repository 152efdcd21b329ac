// Package tray provides the menu-bar interface for local mode.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/soyle-app/soyle/internal/gesture"
)

// Tray represents the menu-bar application.
type Tray struct {
	onToggle    func(enabled bool)
	onOpenDebug func()
	onQuit      func()
	enabled     bool
	lastLabel   gesture.Label
	lastPhrase  string
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuToggle     *systray.MenuItem
	menuLastPhrase *systray.MenuItem
}

// New creates a new Tray instance with recognition enabled.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback invoked when recognition is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpenDebug sets the callback invoked by the debug view menu item. The
// item is only shown when a callback is set before Run.
func (t *Tray) OnOpenDebug(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpenDebug = fn
}

// OnQuit sets the callback invoked when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the menu-bar loop. It blocks until Quit is called and must run
// on the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit stops the menu-bar loop.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Soyle")
	systray.SetTooltip("Soyle gesture speech")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle gesture recognition")
	systray.AddSeparator()

	t.menuLastPhrase = systray.AddMenuItem(lastTitle(t.lastLabel, t.lastPhrase), "Last spoken phrase")
	t.menuLastPhrase.Disable()
	systray.AddSeparator()

	var debugClicked chan struct{}
	if t.onOpenDebug != nil {
		debugClicked = systray.AddMenuItem("Open Debug View...", "Open the live view in a browser").ClickedCh
		systray.AddSeparator()
	}
	t.mu.Unlock()

	menuQuit := systray.AddMenuItem("Quit", "Quit Soyle")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-debugClicked:
				t.handleOpenDebug()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// handleToggle flips the enabled state and notifies the callback.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleOpenDebug() {
	t.mu.RLock()
	callback := t.onOpenDebug
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetLastSpoken updates the last phrase shown in the menu.
func (t *Tray) SetLastSpoken(label gesture.Label, phrase string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastLabel, t.lastPhrase = label, phrase
	if t.menuLastPhrase != nil {
		t.menuLastPhrase.SetTitle(lastTitle(label, phrase))
	}
}

// LastSpoken returns the label and phrase last shown in the menu.
func (t *Tray) LastSpoken() (gesture.Label, string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastLabel, t.lastPhrase
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Listening"
	}
	return "○ Paused"
}

func lastTitle(label gesture.Label, phrase string) string {
	if label == "" {
		return "Last: none"
	}
	return "Last: " + phrase + " (" + string(label) + ")"
}
