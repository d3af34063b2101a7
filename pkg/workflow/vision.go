package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const categoryVision = "Vision"

// renderIndexedName substitutes the {index} placeholder in a filename
// pattern. A width spec in the editor's format is honoured, so
// "capture_{index:03d}.png" with index 7 yields "capture_007.png".
func renderIndexedName(pattern string, index int) string {
	start := strings.Index(pattern, "{index")
	if start < 0 {
		return pattern
	}
	end := strings.Index(pattern[start:], "}")
	if end < 0 {
		return pattern
	}
	end += start

	rendered := strconv.Itoa(index)
	if spec, ok := strings.CutPrefix(pattern[start+len("{index"):end], ":"); ok {
		if body, isInt := strings.CutSuffix(spec, "d"); isInt && strings.HasPrefix(body, "0") {
			if width, err := strconv.Atoi(body); err == nil && width > 0 {
				rendered = fmt.Sprintf("%0*d", width, index)
			}
		}
	}
	return pattern[:start] + rendered + pattern[end+1:]
}

func countFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() {
			n++
		}
	}
	return n
}

func colorWithin(got, want RGB, tolerance int) bool {
	diff := func(a, b int) int {
		if a > b {
			return a - b
		}
		return b - a
	}
	return diff(got.R, want.R) <= tolerance &&
		diff(got.G, want.G) <= tolerance &&
		diff(got.B, want.B) <= tolerance
}

func visionSpecs() []*nodeSpec {
	return []*nodeSpec{
		action(&nodeSpec{
			typ:      "screenshot",
			display:  "Screenshot",
			category: categoryVision,
			fields: []ConfigField{
				coordField("x", "X"),
				coordField("y", "Y"),
				{Key: "width", Label: "Width", Kind: FieldInt, Min: 1, Max: 99999, Default: 400},
				{Key: "height", Label: "Height", Kind: FieldInt, Min: 1, Max: 99999, Default: 300},
				{Key: "output_dir", Label: "Output Directory", Kind: FieldPath, Required: true, Default: "captures"},
				{Key: "filename", Label: "Filename Pattern", Kind: FieldString, Required: true, Default: "capture_{index:03d}.png"},
			},
			check: func(cfg map[string]any) error {
				pattern, _ := cfg["filename"].(string)
				if !strings.Contains(pattern, "{index") {
					return &ConfigError{Field: "filename", Reason: "must contain an {index} placeholder"}
				}
				return nil
			},
		}, func(n *actionNode, ctx context.Context, run *Context, rt Runtime) (any, error) {
			dir := n.stringConfig("output_dir")
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
			name := renderIndexedName(n.stringConfig("filename"), countFiles(dir)+1)

			region := Region{
				X:      n.intConfig("x"),
				Y:      n.intConfig("y"),
				Width:  n.intConfig("width"),
				Height: n.intConfig("height"),
			}
			captured, err := rt.TakeScreenshot(ctx, region)
			if err != nil {
				return nil, err
			}
			target := filepath.Join(dir, name)
			if err := moveFile(captured, target); err != nil {
				return nil, err
			}
			return target, nil
		}),

		action(&nodeSpec{
			typ:      "pixel_color",
			display:  "Read Pixel",
			category: categoryVision,
			fields: []ConfigField{
				coordField("x", "X"),
				coordField("y", "Y"),
			},
		}, func(n *actionNode, ctx context.Context, run *Context, rt Runtime) (any, error) {
			c, err := rt.PixelColor(ctx, n.intConfig("x"), n.intConfig("y"))
			if err != nil {
				return nil, err
			}
			return map[string]any{"r": c.R, "g": c.G, "b": c.B}, nil
		}),

		action(&nodeSpec{
			typ:      "locate_image",
			display:  "Locate Image",
			category: categoryVision,
			fields: []ConfigField{
				{Key: "image_path", Label: "Template Image", Kind: FieldPath, Default: ""},
				{Key: "confidence", Label: "Confidence", Kind: FieldFloat, Min: 0.1, Max: 1.0, Step: 0.05, Default: 0.9},
				{Key: "grayscale", Label: "Grayscale", Kind: FieldBool, Default: false},
			},
		}, func(n *actionNode, ctx context.Context, run *Context, rt Runtime) (any, error) {
			path := n.stringConfig("image_path")
			if path == "" {
				return nil, errors.New("no template image configured")
			}
			pt, found, err := rt.LocateImage(ctx, path, n.floatConfig("confidence"), nil, n.boolConfig("grayscale"))
			if err != nil {
				return nil, err
			}
			if !found {
				return nil, fmt.Errorf("image %q not found on screen", path)
			}
			return map[string]any{"x": pt.X, "y": pt.Y}, nil
		}),

		action(&nodeSpec{
			typ:      "wait_pixel",
			display:  "Wait for Pixel",
			category: categoryVision,
			fields: []ConfigField{
				coordField("x", "X"),
				coordField("y", "Y"),
				{Key: "r", Label: "Red", Kind: FieldInt, Min: 0, Max: 255, Default: 255},
				{Key: "g", Label: "Green", Kind: FieldInt, Min: 0, Max: 255, Default: 255},
				{Key: "b", Label: "Blue", Kind: FieldInt, Min: 0, Max: 255, Default: 255},
				{Key: "tolerance", Label: "Tolerance", Kind: FieldInt, Min: 0, Max: 255, Default: 10},
				{Key: "timeout", Label: "Timeout (s)", Kind: FieldFloat, Min: 0.1, Max: 600, Step: 0.5, Default: 10},
				{Key: "interval", Label: "Poll Interval (s)", Kind: FieldFloat, Min: 0.01, Max: 10, Step: 0.05, Default: 0.2},
			},
		}, func(n *actionNode, ctx context.Context, run *Context, rt Runtime) (any, error) {
			x, y := n.intConfig("x"), n.intConfig("y")
			want := RGB{R: n.intConfig("r"), G: n.intConfig("g"), B: n.intConfig("b")}
			tolerance := n.intConfig("tolerance")
			deadline := time.Now().Add(seconds(n.floatConfig("timeout")))

			for {
				got, err := rt.PixelColor(ctx, x, y)
				if err != nil {
					return nil, err
				}
				if colorWithin(got, want, tolerance) {
					return map[string]any{"r": got.R, "g": got.G, "b": got.B}, nil
				}
				if time.Now().After(deadline) {
					return nil, fmt.Errorf("timed out waiting for pixel (%d, %d) to match", x, y)
				}
				if err := sleep(ctx, seconds(n.floatConfig("interval"))); err != nil {
					return nil, err
				}
			}
		}),

		action(&nodeSpec{
			typ:      "wait_image",
			display:  "Wait for Image",
			category: categoryVision,
			fields: []ConfigField{
				{Key: "image_path", Label: "Template Image", Kind: FieldPath, Default: ""},
				{Key: "confidence", Label: "Confidence", Kind: FieldFloat, Min: 0.1, Max: 1.0, Step: 0.05, Default: 0.9},
				{Key: "grayscale", Label: "Grayscale", Kind: FieldBool, Default: false},
				{Key: "timeout", Label: "Timeout (s)", Kind: FieldFloat, Min: 0.1, Max: 600, Step: 0.5, Default: 10},
				{Key: "interval", Label: "Poll Interval (s)", Kind: FieldFloat, Min: 0.01, Max: 10, Step: 0.05, Default: 0.5},
			},
		}, func(n *actionNode, ctx context.Context, run *Context, rt Runtime) (any, error) {
			path := n.stringConfig("image_path")
			if path == "" {
				return nil, errors.New("no template image configured")
			}
			deadline := time.Now().Add(seconds(n.floatConfig("timeout")))

			for {
				pt, found, err := rt.LocateImage(ctx, path, n.floatConfig("confidence"), nil, n.boolConfig("grayscale"))
				if err != nil {
					return nil, err
				}
				if found {
					return map[string]any{"x": pt.X, "y": pt.Y}, nil
				}
				if time.Now().After(deadline) {
					return nil, fmt.Errorf("timed out waiting for image %q", path)
				}
				if err := sleep(ctx, seconds(n.floatConfig("interval"))); err != nil {
					return nil, err
				}
			}
		}),
	}
}
