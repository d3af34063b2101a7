// Package testutil provides test doubles shared by the flowgrid test
// suites.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/flowgrid/flowgrid/pkg/workflow"
)

// Match is one scripted LocateImage response.
type Match struct {
	At    workflow.Point
	Found bool
}

// ScriptedRuntime implements workflow.Runtime for tests. Every call is
// recorded in order, and the probe methods serve queued responses; the
// last queue entry repeats once a queue runs out.
//
// The zero value is usable: effects succeed, probes report black
// pixels and no image matches, commands exit zero.
type ScriptedRuntime struct {
	mu    sync.Mutex
	calls []string
	shots int

	// Dir receives the files TakeScreenshot creates, usually
	// t.TempDir(). Empty means the system temp directory.
	Dir string

	// Colors are served by PixelColor in order.
	Colors []workflow.RGB
	// Matches are served by LocateImage in order.
	Matches []Match
	// Commands are served by RunCommand in order.
	Commands []workflow.CommandResult

	// Err, when set, fails every subsequent call with itself.
	Err error
}

var _ workflow.Runtime = (*ScriptedRuntime)(nil)

func (s *ScriptedRuntime) record(format string, args ...any) {
	s.calls = append(s.calls, fmt.Sprintf(format, args...))
}

// Calls returns every recorded call in order.
func (s *ScriptedRuntime) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Count returns how many recorded calls start with prefix.
func (s *ScriptedRuntime) Count(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (s *ScriptedRuntime) TakeScreenshot(ctx context.Context, region workflow.Region) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("TakeScreenshot(%d,%d,%d,%d)", region.X, region.Y, region.Width, region.Height)
	if s.Err != nil {
		return "", s.Err
	}
	dir := s.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	s.shots++
	path := filepath.Join(dir, fmt.Sprintf("capture_%d.png", s.shots))
	if err := os.WriteFile(path, []byte("fake png"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (s *ScriptedRuntime) MouseMove(ctx context.Context, x, y int, duration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("MouseMove(%d,%d,%s)", x, y, duration)
	return s.Err
}

func (s *ScriptedRuntime) MouseClick(ctx context.Context, x, y int, button string, clicks int, interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("MouseClick(%d,%d,%s,%d)", x, y, button, clicks)
	return s.Err
}

func (s *ScriptedRuntime) MouseDrag(ctx context.Context, startX, startY, endX, endY int, button string, moveDuration, dragDuration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("MouseDrag(%d,%d,%d,%d,%s)", startX, startY, endX, endY, button)
	return s.Err
}

func (s *ScriptedRuntime) MouseScroll(ctx context.Context, clicks int, horizontal bool, at *workflow.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if at == nil {
		s.record("MouseScroll(%d,%t,cursor)", clicks, horizontal)
	} else {
		s.record("MouseScroll(%d,%t,%d,%d)", clicks, horizontal, at.X, at.Y)
	}
	return s.Err
}

func (s *ScriptedRuntime) MouseDown(ctx context.Context, x, y int, button string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("MouseDown(%d,%d,%s)", x, y, button)
	return s.Err
}

func (s *ScriptedRuntime) MouseUp(ctx context.Context, x, y int, button string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("MouseUp(%d,%d,%s)", x, y, button)
	return s.Err
}

func (s *ScriptedRuntime) TypeText(ctx context.Context, text string, interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("TypeText(%q)", text)
	return s.Err
}

func (s *ScriptedRuntime) PressKey(ctx context.Context, key string, presses int, interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("PressKey(%s,%d)", key, presses)
	return s.Err
}

func (s *ScriptedRuntime) KeyDown(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("KeyDown(%s)", key)
	return s.Err
}

func (s *ScriptedRuntime) KeyUp(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("KeyUp(%s)", key)
	return s.Err
}

func (s *ScriptedRuntime) PressHotkey(ctx context.Context, keys []string, interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("PressHotkey(%s)", strings.Join(keys, "+"))
	return s.Err
}

func (s *ScriptedRuntime) PixelColor(ctx context.Context, x, y int) (workflow.RGB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("PixelColor(%d,%d)", x, y)
	if s.Err != nil {
		return workflow.RGB{}, s.Err
	}
	if len(s.Colors) == 0 {
		return workflow.RGB{}, nil
	}
	c := s.Colors[0]
	if len(s.Colors) > 1 {
		s.Colors = s.Colors[1:]
	}
	return c, nil
}

func (s *ScriptedRuntime) LocateImage(ctx context.Context, imagePath string, confidence float64, region *workflow.Region, grayscale bool) (workflow.Point, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("LocateImage(%s)", imagePath)
	if s.Err != nil {
		return workflow.Point{}, false, s.Err
	}
	if len(s.Matches) == 0 {
		return workflow.Point{}, false, nil
	}
	m := s.Matches[0]
	if len(s.Matches) > 1 {
		s.Matches = s.Matches[1:]
	}
	return m.At, m.Found, nil
}

func (s *ScriptedRuntime) RunCommand(ctx context.Context, command string, timeout time.Duration, dir string) (workflow.CommandResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("RunCommand(%q)", command)
	if s.Err != nil {
		return workflow.CommandResult{}, s.Err
	}
	if len(s.Commands) == 0 {
		return workflow.CommandResult{}, nil
	}
	r := s.Commands[0]
	if len(s.Commands) > 1 {
		s.Commands = s.Commands[1:]
	}
	return r, nil
}

func (s *ScriptedRuntime) ActivateWindow(ctx context.Context, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ActivateWindow(%q)", title)
	return s.Err
}

func (s *ScriptedRuntime) SwitchDesktop(ctx context.Context, direction string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("SwitchDesktop(%s)", direction)
	return s.Err
}
