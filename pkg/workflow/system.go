package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

const (
	categorySystem = "System"
	categoryFlow   = "Flow"
)

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// moveFile renames src to dst, falling back to copy-and-remove when the
// two live on different filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func systemSpecs() []*nodeSpec {
	return []*nodeSpec{
		action(&nodeSpec{
			typ:      "delay",
			display:  "Delay",
			category: categoryFlow,
			fields: []ConfigField{
				{Key: "seconds", Label: "Seconds", Kind: FieldFloat, Min: 0, Max: 3600, Step: 0.1, Default: 1.0},
			},
		}, func(n *actionNode, ctx context.Context, run *Context, rt Runtime) (any, error) {
			if err := sleep(ctx, seconds(n.floatConfig("seconds"))); err != nil {
				return nil, err
			}
			return "ok", nil
		}),

		action(&nodeSpec{
			typ:      "file_copy",
			display:  "Copy File",
			category: categorySystem,
			fields: []ConfigField{
				{Key: "source", Label: "Source", Kind: FieldPath, Default: ""},
				{Key: "destination", Label: "Destination", Kind: FieldPath, Default: ""},
				{Key: "overwrite", Label: "Overwrite", Kind: FieldBool, Default: false},
			},
		}, func(n *actionNode, ctx context.Context, run *Context, rt Runtime) (any, error) {
			src, dst := n.stringConfig("source"), n.stringConfig("destination")
			if src == "" || dst == "" {
				return nil, errors.New("source and destination must be configured")
			}
			if !n.boolConfig("overwrite") && fileExists(dst) {
				return nil, fmt.Errorf("destination %q already exists", dst)
			}
			if err := copyFile(src, dst); err != nil {
				return nil, err
			}
			return dst, nil
		}),

		action(&nodeSpec{
			typ:      "file_move",
			display:  "Move File",
			category: categorySystem,
			fields: []ConfigField{
				{Key: "source", Label: "Source", Kind: FieldPath, Default: ""},
				{Key: "destination", Label: "Destination", Kind: FieldPath, Default: ""},
				{Key: "overwrite", Label: "Overwrite", Kind: FieldBool, Default: false},
			},
		}, func(n *actionNode, ctx context.Context, run *Context, rt Runtime) (any, error) {
			src, dst := n.stringConfig("source"), n.stringConfig("destination")
			if src == "" || dst == "" {
				return nil, errors.New("source and destination must be configured")
			}
			if !n.boolConfig("overwrite") && fileExists(dst) {
				return nil, fmt.Errorf("destination %q already exists", dst)
			}
			if err := moveFile(src, dst); err != nil {
				return nil, err
			}
			return dst, nil
		}),

		action(&nodeSpec{
			typ:      "file_delete",
			display:  "Delete File",
			category: categorySystem,
			fields: []ConfigField{
				{Key: "path", Label: "Path", Kind: FieldPath, Default: ""},
				{Key: "missing_ok", Label: "Ignore Missing", Kind: FieldBool, Default: true},
			},
		}, func(n *actionNode, ctx context.Context, run *Context, rt Runtime) (any, error) {
			path := n.stringConfig("path")
			if path == "" {
				return nil, errors.New("path must be configured")
			}
			if err := os.Remove(path); err != nil {
				if errors.Is(err, fs.ErrNotExist) && n.boolConfig("missing_ok") {
					return "ok", nil
				}
				return nil, err
			}
			return "ok", nil
		}),

		action(&nodeSpec{
			typ:      "run_command",
			display:  "Run Command",
			category: categorySystem,
			fields: []ConfigField{
				{Key: "command", Label: "Command", Kind: FieldString, Required: true, Default: "echo hello"},
				{Key: "timeout", Label: "Timeout (s)", Kind: FieldFloat, Min: 0, Max: 3600, Step: 1, Default: 30},
				{Key: "working_dir", Label: "Working Directory", Kind: FieldPath, Default: ""},
				{Key: "fail_on_error", Label: "Fail on Non-zero Exit", Kind: FieldBool, Default: true},
			},
		}, func(n *actionNode, ctx context.Context, run *Context, rt Runtime) (any, error) {
			res, err := rt.RunCommand(ctx,
				n.stringConfig("command"),
				seconds(n.floatConfig("timeout")),
				n.stringConfig("working_dir"),
			)
			if err != nil {
				return nil, err
			}
			if n.boolConfig("fail_on_error") && res.ExitCode != 0 {
				msg := strings.TrimSpace(res.Stderr)
				if msg == "" {
					msg = strings.TrimSpace(res.Stdout)
				}
				return nil, fmt.Errorf("command exited with code %d: %s", res.ExitCode, msg)
			}
			return map[string]any{
				"exit_code": res.ExitCode,
				"stdout":    res.Stdout,
				"stderr":    res.Stderr,
			}, nil
		}),

		action(&nodeSpec{
			typ:      "activate_window",
			display:  "Activate Window",
			category: categorySystem,
			fields: []ConfigField{
				{Key: "title", Label: "Window Title", Kind: FieldWindow, Default: ""},
			},
		}, func(n *actionNode, ctx context.Context, run *Context, rt Runtime) (any, error) {
			title := n.stringConfig("title")
			if title == "" {
				return nil, errors.New("no window title configured")
			}
			if err := rt.ActivateWindow(ctx, title); err != nil {
				return nil, err
			}
			return "ok", nil
		}),

		action(&nodeSpec{
			typ:      "switch_desktop",
			display:  "Switch Desktop",
			category: categorySystem,
			fields: []ConfigField{
				{Key: "direction", Label: "Direction", Kind: FieldChoice, Default: DesktopRight, Choices: []Choice{
					{Value: DesktopLeft, Label: "Left"},
					{Value: DesktopRight, Label: "Right"},
				}},
			},
		}, func(n *actionNode, ctx context.Context, run *Context, rt Runtime) (any, error) {
			if err := rt.SwitchDesktop(ctx, n.stringConfig("direction")); err != nil {
				return nil, err
			}
			return "ok", nil
		}),
	}
}
