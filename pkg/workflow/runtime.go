package workflow

import (
	"context"
	"time"
)

// Point is a screen coordinate in physical pixels.
type Point struct {
	X int
	Y int
}

// RGB is a pixel color sample.
type RGB struct {
	R int
	G int
	B int
}

// Region is a rectangular screen area.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// CommandResult carries the outcome of an external command.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Desktop switch directions accepted by Runtime.SwitchDesktop.
const (
	DesktopLeft  = "left"
	DesktopRight = "right"
)

// Runtime is the automation backend the engine drives. The engine calls
// these methods by contract only and never inspects how they are
// implemented; a backend may talk to the OS, a remote agent, or a test
// script. Every call receives the run's context and should honour its
// cancellation where the underlying operation allows it.
type Runtime interface {
	// TakeScreenshot captures region and returns the path of the image
	// file it wrote. The caller owns (and may move) the file.
	TakeScreenshot(ctx context.Context, region Region) (string, error)

	MouseMove(ctx context.Context, x, y int, duration time.Duration) error
	MouseClick(ctx context.Context, x, y int, button string, clicks int, interval time.Duration) error
	MouseDrag(ctx context.Context, startX, startY, endX, endY int, button string, moveDuration, dragDuration time.Duration) error
	// MouseScroll scrolls by clicks (negative scrolls the other way). A
	// nil at scrolls at the current pointer position.
	MouseScroll(ctx context.Context, clicks int, horizontal bool, at *Point) error
	MouseDown(ctx context.Context, x, y int, button string) error
	MouseUp(ctx context.Context, x, y int, button string) error

	TypeText(ctx context.Context, text string, interval time.Duration) error
	PressKey(ctx context.Context, key string, presses int, interval time.Duration) error
	KeyDown(ctx context.Context, key string) error
	KeyUp(ctx context.Context, key string) error
	PressHotkey(ctx context.Context, keys []string, interval time.Duration) error

	PixelColor(ctx context.Context, x, y int) (RGB, error)
	// LocateImage searches the screen (or region, when non-nil) for the
	// template image and returns the match centre. found is false when
	// the template does not appear; that is not an error.
	LocateImage(ctx context.Context, imagePath string, confidence float64, region *Region, grayscale bool) (Point, bool, error)

	// RunCommand executes a shell command and returns its outcome. A
	// non-zero exit code is reported in the result, not as an error.
	RunCommand(ctx context.Context, command string, timeout time.Duration, dir string) (CommandResult, error)

	ActivateWindow(ctx context.Context, title string) error
	SwitchDesktop(ctx context.Context, direction string) error
}

// NopRuntime is a Runtime that does nothing and reports success for
// every operation. Embed it to implement only the methods a backend
// actually supports.
type NopRuntime struct{}

var _ Runtime = NopRuntime{}

func (NopRuntime) TakeScreenshot(ctx context.Context, region Region) (string, error) {
	return "", nil
}

func (NopRuntime) MouseMove(ctx context.Context, x, y int, duration time.Duration) error {
	return nil
}

func (NopRuntime) MouseClick(ctx context.Context, x, y int, button string, clicks int, interval time.Duration) error {
	return nil
}

func (NopRuntime) MouseDrag(ctx context.Context, startX, startY, endX, endY int, button string, moveDuration, dragDuration time.Duration) error {
	return nil
}

func (NopRuntime) MouseScroll(ctx context.Context, clicks int, horizontal bool, at *Point) error {
	return nil
}

func (NopRuntime) MouseDown(ctx context.Context, x, y int, button string) error { return nil }

func (NopRuntime) MouseUp(ctx context.Context, x, y int, button string) error { return nil }

func (NopRuntime) TypeText(ctx context.Context, text string, interval time.Duration) error {
	return nil
}

func (NopRuntime) PressKey(ctx context.Context, key string, presses int, interval time.Duration) error {
	return nil
}

func (NopRuntime) KeyDown(ctx context.Context, key string) error { return nil }

func (NopRuntime) KeyUp(ctx context.Context, key string) error { return nil }

func (NopRuntime) PressHotkey(ctx context.Context, keys []string, interval time.Duration) error {
	return nil
}

func (NopRuntime) PixelColor(ctx context.Context, x, y int) (RGB, error) { return RGB{}, nil }

func (NopRuntime) LocateImage(ctx context.Context, imagePath string, confidence float64, region *Region, grayscale bool) (Point, bool, error) {
	return Point{}, false, nil
}

func (NopRuntime) RunCommand(ctx context.Context, command string, timeout time.Duration, dir string) (CommandResult, error) {
	return CommandResult{}, nil
}

func (NopRuntime) ActivateWindow(ctx context.Context, title string) error { return nil }

func (NopRuntime) SwitchDesktop(ctx context.Context, direction string) error { return nil }

// seconds converts a config duration expressed in seconds to a
// time.Duration. Node configs store durations as float seconds because
// that is what the persisted-graph format carries.
func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// sleep blocks for d or until ctx is cancelled, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
