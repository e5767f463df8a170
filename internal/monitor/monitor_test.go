//go:build linux

package monitor

import (
	"fmt"
	"testing"

	"github.com/genricoloni/reverie/internal/domain"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

// TestHandleSignal verifies which signals turn into activity events
func TestHandleSignal(t *testing.T) {
	tests := []struct {
		name          string
		signal        *dbus.Signal
		expectedEvent *domain.ActivityEvent
	}{
		{
			name:          "freedesktop activated",
			signal:        &dbus.Signal{Name: "org.freedesktop.ScreenSaver.ActiveChanged", Body: []interface{}{true}},
			expectedEvent: &domain.ActivityEvent{Active: true, Source: "org.freedesktop.ScreenSaver"},
		},
		{
			name:          "mate deactivated",
			signal:        &dbus.Signal{Name: "org.mate.ScreenSaver.ActiveChanged", Body: []interface{}{false}},
			expectedEvent: &domain.ActivityEvent{Active: false, Source: "org.mate.ScreenSaver"},
		},
		{
			name:   "Wrong Signal Name",
			signal: &dbus.Signal{Name: "org.freedesktop.DBus.NameOwnerChanged", Body: []interface{}{"a", "b", "c"}},
		},
		{
			name:   "Unknown Screensaver",
			signal: &dbus.Signal{Name: "org.example.ScreenSaver.ActiveChanged", Body: []interface{}{true}},
		},
		{
			name:   "Empty Body",
			signal: &dbus.Signal{Name: "org.gnome.ScreenSaver.ActiveChanged", Body: []interface{}{}},
		},
		{
			name:   "Invalid Payload Type (String instead of Bool)",
			signal: &dbus.Signal{Name: "org.gnome.ScreenSaver.ActiveChanged", Body: []interface{}{"true"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mon := NewScreenSaverMonitor(zap.NewNop())
			mon.conn = &noopDBusClient{}
			mon.running = true

			mon.handleSignal(tt.signal)

			select {
			case event := <-mon.Events():
				if tt.expectedEvent == nil {
					t.Errorf("Unexpected event emitted: %+v", event)
				} else if event != *tt.expectedEvent {
					t.Errorf("Event mismatch: want %+v, got %+v", *tt.expectedEvent, event)
				}
			default:
				if tt.expectedEvent != nil {
					t.Error("Expected event was not emitted")
				}
			}
		})
	}
}

// TestPublish_DeduplicatesState verifies repeated states do not produce events
func TestPublish_DeduplicatesState(t *testing.T) {
	mon := NewScreenSaverMonitor(zap.NewNop())

	for _, active := range []bool{false, false, true, true, true, false} {
		mon.publish(active, "org.gnome.ScreenSaver")
	}

	want := []bool{false, true, false}
	if len(mon.Events()) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(mon.Events()))
	}
	for i, w := range want {
		if ev := <-mon.Events(); ev.Active != w {
			t.Errorf("event %d: expected active=%v, got %v", i, w, ev.Active)
		}
	}
}

// TestPublish_ChannelFullDoesNotBlock verifies a lagging consumer never stalls the monitor
func TestPublish_ChannelFullDoesNotBlock(t *testing.T) {
	mon := NewScreenSaverMonitor(zap.NewNop())

	for i := 0; i < cap(mon.events)+5; i++ {
		mon.publish(i%2 == 0, "org.gnome.ScreenSaver")
	}

	if len(mon.Events()) != cap(mon.events) {
		t.Errorf("expected a full buffer of %d, got %d", cap(mon.events), len(mon.Events()))
	}
	if mon.lastDropWarning.IsZero() {
		t.Error("expected a drop warning to be recorded")
	}
}

// noopDBusClient is a stub to prevent panics during unit tests where
// we don't want to use full mocks.
type noopDBusClient struct{}

func (n *noopDBusClient) Close() error                             { return nil }
func (n *noopDBusClient) AddMatchSignal(...dbus.MatchOption) error { return nil }
func (n *noopDBusClient) Signal(chan<- *dbus.Signal)               {}
func (n *noopDBusClient) ListNames() ([]string, error) { return []string{}, nil }
func (n *noopDBusClient) GetActive(string, string, string) (bool, error) {
	return false, fmt.Errorf("noop")
}
