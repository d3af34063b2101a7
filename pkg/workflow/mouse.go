package workflow

import "context"

const categoryMouse = "Mouse"

func buttonChoices() []Choice {
	return []Choice{
		{Value: "left", Label: "Left"},
		{Value: "right", Label: "Right"},
		{Value: "middle", Label: "Middle"},
	}
}

func coordField(key, label string) ConfigField {
	return ConfigField{Key: key, Label: label, Kind: FieldInt, Min: 0, Max: 99999, Default: 0}
}

func action(spec *nodeSpec, effect effectFunc) *nodeSpec {
	spec.kind = KindAction
	spec.inputs = []string{"execute"}
	spec.outputs = []string{"continue"}
	spec.build = func(b baseNode) Node {
		return &actionNode{baseNode: b, effect: effect}
	}
	return spec
}

func mouseSpecs() []*nodeSpec {
	return []*nodeSpec{
		action(&nodeSpec{
			typ:      "mouse_move",
			display:  "Move Mouse",
			category: categoryMouse,
			fields: []ConfigField{
				coordField("x", "X"),
				coordField("y", "Y"),
				{Key: "duration", Label: "Duration (s)", Kind: FieldFloat, Min: 0, Max: 10, Step: 0.05, Default: 0.25},
			},
		}, func(n *actionNode, ctx context.Context, run *Context, rt Runtime) (any, error) {
			err := rt.MouseMove(ctx, n.intConfig("x"), n.intConfig("y"), seconds(n.floatConfig("duration")))
			if err != nil {
				return nil, err
			}
			return "ok", nil
		}),

		action(&nodeSpec{
			typ:      "mouse_click",
			display:  "Mouse Click",
			category: categoryMouse,
			fields: []ConfigField{
				coordField("x", "X"),
				coordField("y", "Y"),
				{Key: "button", Label: "Button", Kind: FieldChoice, Choices: buttonChoices(), Default: "left"},
				{Key: "clicks", Label: "Clicks", Kind: FieldInt, Min: 1, Max: 10, Default: 1},
				{Key: "interval", Label: "Interval (s)", Kind: FieldFloat, Min: 0, Max: 5, Step: 0.1, Default: 0.1},
			},
		}, func(n *actionNode, ctx context.Context, run *Context, rt Runtime) (any, error) {
			err := rt.MouseClick(ctx,
				n.intConfig("x"), n.intConfig("y"),
				n.stringConfig("button"),
				n.intConfig("clicks"),
				seconds(n.floatConfig("interval")),
			)
			if err != nil {
				return nil, err
			}
			return "ok", nil
		}),

		action(&nodeSpec{
			typ:      "mouse_drag",
			display:  "Mouse Drag",
			category: categoryMouse,
			fields: []ConfigField{
				coordField("start_x", "Start X"),
				coordField("start_y", "Start Y"),
				coordField("end_x", "End X"),
				coordField("end_y", "End Y"),
				{Key: "button", Label: "Button", Kind: FieldChoice, Choices: buttonChoices(), Default: "left"},
				{Key: "move_duration", Label: "Move Duration (s)", Kind: FieldFloat, Min: 0, Max: 10, Step: 0.05, Default: 0.3},
				{Key: "drag_duration", Label: "Drag Duration (s)", Kind: FieldFloat, Min: 0, Max: 10, Step: 0.05, Default: 0.5},
			},
		}, func(n *actionNode, ctx context.Context, run *Context, rt Runtime) (any, error) {
			err := rt.MouseDrag(ctx,
				n.intConfig("start_x"), n.intConfig("start_y"),
				n.intConfig("end_x"), n.intConfig("end_y"),
				n.stringConfig("button"),
				seconds(n.floatConfig("move_duration")),
				seconds(n.floatConfig("drag_duration")),
			)
			if err != nil {
				return nil, err
			}
			return "ok", nil
		}),

		action(&nodeSpec{
			typ:      "mouse_scroll",
			display:  "Mouse Scroll",
			category: categoryMouse,
			fields: []ConfigField{
				{Key: "clicks", Label: "Scroll Clicks", Kind: FieldInt, Min: -100, Max: 100, Default: 3},
				{Key: "orientation", Label: "Orientation", Kind: FieldChoice, Default: "vertical", Choices: []Choice{
					{Value: "vertical", Label: "Vertical"},
					{Value: "horizontal", Label: "Horizontal"},
				}},
				{Key: "at_cursor", Label: "At Cursor", Kind: FieldBool, Default: true},
				coordField("x", "X"),
				coordField("y", "Y"),
			},
		}, func(n *actionNode, ctx context.Context, run *Context, rt Runtime) (any, error) {
			var at *Point
			if !n.boolConfig("at_cursor") {
				at = &Point{X: n.intConfig("x"), Y: n.intConfig("y")}
			}
			horizontal := n.stringConfig("orientation") == "horizontal"
			if err := rt.MouseScroll(ctx, n.intConfig("clicks"), horizontal, at); err != nil {
				return nil, err
			}
			return "ok", nil
		}),

		action(&nodeSpec{
			typ:      "mouse_down",
			display:  "Mouse Button Down",
			category: categoryMouse,
			fields: []ConfigField{
				coordField("x", "X"),
				coordField("y", "Y"),
				{Key: "button", Label: "Button", Kind: FieldChoice, Choices: buttonChoices(), Default: "left"},
			},
		}, func(n *actionNode, ctx context.Context, run *Context, rt Runtime) (any, error) {
			if err := rt.MouseDown(ctx, n.intConfig("x"), n.intConfig("y"), n.stringConfig("button")); err != nil {
				return nil, err
			}
			return "ok", nil
		}),

		action(&nodeSpec{
			typ:      "mouse_up",
			display:  "Mouse Button Up",
			category: categoryMouse,
			fields: []ConfigField{
				coordField("x", "X"),
				coordField("y", "Y"),
				{Key: "button", Label: "Button", Kind: FieldChoice, Choices: buttonChoices(), Default: "left"},
			},
		}, func(n *actionNode, ctx context.Context, run *Context, rt Runtime) (any, error) {
			if err := rt.MouseUp(ctx, n.intConfig("x"), n.intConfig("y"), n.stringConfig("button")); err != nil {
				return nil, err
			}
			return "ok", nil
		}),
	}
}
