package workflow

import (
	"errors"
	"strings"
	"testing"
)

func wantConfigError(t *testing.T, err error, field, fragment string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected config error for field %q, got nil", field)
	}
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ConfigError, got %T: %v", err, err)
	}
	if cerr.Field != field {
		t.Fatalf("expected field %q, got %q (%v)", field, cerr.Field, err)
	}
	if !strings.Contains(err.Error(), fragment) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRegistryCatalogue(t *testing.T) {
	reg := NewRegistry()

	types := reg.Types()
	if len(types) == 0 {
		t.Fatal("expected a populated catalogue")
	}
	for _, typ := range []string{
		"mouse_click", "keyboard_input", "delay", "run_command",
		"pixel_color", "condition_equals", "if_condition", "while_loop", "for_loop",
	} {
		if !reg.Has(typ) {
			t.Fatalf("catalogue is missing %q", typ)
		}
	}
	if reg.Has("teleport") {
		t.Fatal("Has must not invent types")
	}

	_, err := reg.New("teleport", "a")
	if err == nil || !strings.Contains(err.Error(), `unknown node type "teleport"`) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNodeDefaults(t *testing.T) {
	reg := NewRegistry()
	n := mustNode(t, reg, "mouse_click", "a")

	if n.Title() != "Mouse Click" {
		t.Fatalf("expected display-name title, got %q", n.Title())
	}
	if n.Category() != "Mouse" {
		t.Fatalf("unexpected category %q", n.Category())
	}
	if n.Kind() != KindAction {
		t.Fatalf("unexpected kind %q", n.Kind())
	}
	if got := n.InputPorts(); len(got) != 1 || got[0] != "execute" {
		t.Fatalf("unexpected inputs %v", got)
	}
	if got := n.OutputPorts(); len(got) != 1 || got[0] != "continue" {
		t.Fatalf("unexpected outputs %v", got)
	}

	cfg := n.Config()
	if cfg["x"] != 0 || cfg["y"] != 0 {
		t.Fatalf("unexpected coordinate defaults: %v", cfg)
	}
	if cfg["button"] != "left" || cfg["clicks"] != 1 {
		t.Fatalf("unexpected defaults: %v", cfg)
	}
	if cfg["interval"] != 0.1 {
		t.Fatalf("unexpected interval default: %v", cfg)
	}
}

func TestNodeConfigureNormalizes(t *testing.T) {
	reg := NewRegistry()
	n := mustNode(t, reg, "mouse_click", "a")

	// Numbers arrive in whatever width JSON or the caller used.
	if err := n.Configure(map[string]any{"x": float64(7), "clicks": int64(2), "interval": 1}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	cfg := n.Config()
	if cfg["x"] != 7 {
		t.Fatalf("expected int 7, got %T %v", cfg["x"], cfg["x"])
	}
	if cfg["clicks"] != 2 {
		t.Fatalf("expected int 2, got %T %v", cfg["clicks"], cfg["clicks"])
	}
	if cfg["interval"] != 1.0 {
		t.Fatalf("expected float64 1, got %T %v", cfg["interval"], cfg["interval"])
	}
}

func TestNodeConfigureRejectsAndKeepsOldConfig(t *testing.T) {
	reg := NewRegistry()
	n := mustNode(t, reg, "mouse_click", "a")

	wantConfigError(t, n.Configure(map[string]any{"clicks": 0}), "clicks", "must be between 1 and 10")
	wantConfigError(t, n.Configure(map[string]any{"x": 1.5}), "x", "must be an integer")
	wantConfigError(t, n.Configure(map[string]any{"x": "left"}), "x", "must be an integer")
	wantConfigError(t, n.Configure(map[string]any{"button": "center"}), "button", "must be one of left, right, middle")
	wantConfigError(t, n.Configure(map[string]any{"button": 3}), "button", "must be a string")

	// A patch that fails must not half-apply.
	wantConfigError(t, n.Configure(map[string]any{"x": 50, "clicks": 99}), "clicks", "must be between 1 and 10")
	cfg := n.Config()
	if cfg["x"] != 0 || cfg["clicks"] != 1 {
		t.Fatalf("rejected patch leaked into config: %v", cfg)
	}
}

func TestNodeRequiredString(t *testing.T) {
	reg := NewRegistry()
	n := mustNode(t, reg, "key_press", "a")

	wantConfigError(t, n.Configure(map[string]any{"key": ""}), "key", "must not be empty")
	if err := n.Configure(map[string]any{"key": "tab"}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
}

func TestNodeBoolField(t *testing.T) {
	reg := NewRegistry()
	n := mustNode(t, reg, "run_command", "a")

	wantConfigError(t, n.Configure(map[string]any{"fail_on_error": "yes"}), "fail_on_error", "must be a boolean")
	if err := n.Configure(map[string]any{"fail_on_error": false}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
}

func TestNodeExpressionFieldsAreCompiled(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.NewWithConfig("while_loop", "loop", "", map[string]any{"condition": "__import__('os')"})
	wantConfigError(t, err, "condition", "is not a callable function")

	_, err = reg.NewWithConfig("condition_equals", "cond", "", map[string]any{"left": "(1 +"})
	wantConfigError(t, err, "left", "expression error")

	_, err = reg.NewWithConfig("for_loop", "count", "", map[string]any{"step": 0})
	wantConfigError(t, err, "step", "step must not be zero")
}

func TestNodeConstructionErrors(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.New("mouse_click", "")
	wantConfigError(t, err, "id", "must not be empty")

	_, err = reg.NewWithConfig("mouse_click", "a", "", map[string]any{"clicks": 11})
	wantConfigError(t, err, "clicks", "must be between 1 and 10")
}

func TestNodeConfigIsolation(t *testing.T) {
	reg := NewRegistry()
	n := mustNode(t, reg, "mouse_click", "a")

	cfg := n.Config()
	cfg["x"] = 500
	if n.Config()["x"] != 0 {
		t.Fatalf("Config must return a copy, got %v", n.Config())
	}

	patch := map[string]any{"x": 9}
	if err := n.Configure(patch); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	patch["x"] = 1000
	if n.Config()["x"] != 9 {
		t.Fatalf("Configure must copy the patch, got %v", n.Config())
	}
}

func TestNodeSchemaIsolation(t *testing.T) {
	reg := NewRegistry()
	n := mustNode(t, reg, "mouse_click", "a")

	schema := n.ConfigSchema()
	if len(schema) != 5 {
		t.Fatalf("unexpected schema size %d", len(schema))
	}
	if schema[0].Key != "x" || schema[0].Kind != FieldInt {
		t.Fatalf("unexpected first field %+v", schema[0])
	}
	schema[0].Key = "mutated"
	if n.ConfigSchema()[0].Key != "x" {
		t.Fatal("ConfigSchema must return a copy")
	}
}

func TestNodeTitle(t *testing.T) {
	reg := NewRegistry()

	n, err := reg.NewWithConfig("keyboard_input", "a", "Greet the user", nil)
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	if n.Title() != "Greet the user" {
		t.Fatalf("unexpected title %q", n.Title())
	}
	n.SetTitle("Renamed")
	if n.Title() != "Renamed" {
		t.Fatalf("unexpected title %q", n.Title())
	}
}

func TestNewNodeID(t *testing.T) {
	id := NewNodeID("mouse_click")
	if !strings.HasPrefix(string(id), "mouse_") {
		t.Fatalf("unexpected id %q", id)
	}
	if len(id) != len("mouse_")+6 {
		t.Fatalf("unexpected id length: %q", id)
	}

	if id2 := NewNodeID("delay"); !strings.HasPrefix(string(id2), "delay_") {
		t.Fatalf("unexpected id %q", id2)
	}
	if NewNodeID("mouse_click") == NewNodeID("mouse_click") {
		t.Fatal("ids must not repeat")
	}
}
