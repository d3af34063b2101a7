package workflow

import (
	"context"
	"strings"
)

const categoryKeyboard = "Keyboard"

// splitHotkey parses a chord like "ctrl+shift+s" into its key names.
func splitHotkey(chord string) []string {
	var keys []string
	for _, part := range strings.Split(chord, "+") {
		if k := strings.TrimSpace(part); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func keyboardSpecs() []*nodeSpec {
	return []*nodeSpec{
		action(&nodeSpec{
			typ:      "keyboard_input",
			display:  "Type Text",
			category: categoryKeyboard,
			fields: []ConfigField{
				{Key: "text", Label: "Text", Kind: FieldMultiline, Default: ""},
				{Key: "interval", Label: "Char Interval (s)", Kind: FieldFloat, Min: 0, Max: 1, Step: 0.01, Default: 0.05},
			},
		}, func(n *actionNode, ctx context.Context, run *Context, rt Runtime) (any, error) {
			if err := rt.TypeText(ctx, n.stringConfig("text"), seconds(n.floatConfig("interval"))); err != nil {
				return nil, err
			}
			return "ok", nil
		}),

		action(&nodeSpec{
			typ:      "key_press",
			display:  "Press Key",
			category: categoryKeyboard,
			fields: []ConfigField{
				{Key: "key", Label: "Key", Kind: FieldString, Required: true, Default: "enter"},
				{Key: "presses", Label: "Presses", Kind: FieldInt, Min: 1, Max: 100, Default: 1},
				{Key: "interval", Label: "Interval (s)", Kind: FieldFloat, Min: 0, Max: 5, Step: 0.05, Default: 0.05},
			},
		}, func(n *actionNode, ctx context.Context, run *Context, rt Runtime) (any, error) {
			err := rt.PressKey(ctx, n.stringConfig("key"), n.intConfig("presses"), seconds(n.floatConfig("interval")))
			if err != nil {
				return nil, err
			}
			return "ok", nil
		}),

		action(&nodeSpec{
			typ:      "key_hold",
			display:  "Hold Key",
			category: categoryKeyboard,
			fields: []ConfigField{
				{Key: "key", Label: "Key", Kind: FieldString, Required: true, Default: "shift"},
				{Key: "duration", Label: "Hold Duration (s)", Kind: FieldFloat, Min: 0, Max: 60, Step: 0.1, Default: 1.0},
			},
		}, func(n *actionNode, ctx context.Context, run *Context, rt Runtime) (any, error) {
			key := n.stringConfig("key")
			if err := rt.KeyDown(ctx, key); err != nil {
				return nil, err
			}
			// Release the key even when the hold is interrupted.
			holdErr := sleep(ctx, seconds(n.floatConfig("duration")))
			if err := rt.KeyUp(ctx, key); err != nil && holdErr == nil {
				holdErr = err
			}
			if holdErr != nil {
				return nil, holdErr
			}
			return "ok", nil
		}),

		action(&nodeSpec{
			typ:      "hotkey",
			display:  "Hotkey",
			category: categoryKeyboard,
			fields: []ConfigField{
				{Key: "keys", Label: "Key Chord", Kind: FieldString, Required: true, Default: "ctrl+c"},
				{Key: "interval", Label: "Interval (s)", Kind: FieldFloat, Min: 0, Max: 1, Step: 0.01, Default: 0.0},
			},
			check: func(cfg map[string]any) error {
				chord, _ := cfg["keys"].(string)
				if len(splitHotkey(chord)) == 0 {
					return &ConfigError{Field: "keys", Reason: "must name at least one key"}
				}
				return nil
			},
		}, func(n *actionNode, ctx context.Context, run *Context, rt Runtime) (any, error) {
			keys := splitHotkey(n.stringConfig("keys"))
			if err := rt.PressHotkey(ctx, keys, seconds(n.floatConfig("interval"))); err != nil {
				return nil, err
			}
			return "ok", nil
		}),
	}
}
