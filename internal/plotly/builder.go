package plotly

// Trace is a typed helper for building traces; it marshals to the same
// object shape Plotly expects.
type Trace map[string]any

// Bar builds a bar trace.
func Bar(name string, x []string, y []float64) Trace {
	return Trace{"type": "bar", "name": name, "x": x, "y": y}
}

// HorizontalBar builds a bar trace with categories on the y axis.
func HorizontalBar(name string, labels []string, values []float64) Trace {
	return Trace{"type": "bar", "orientation": "h", "name": name, "x": values, "y": labels}
}

// Pie builds a pie trace.
func Pie(labels []string, values []float64) Trace {
	return Trace{"type": "pie", "labels": labels, "values": values, "hole": 0.35}
}

// Line builds a scatter trace drawn as lines and markers.
func Line(name string, x []string, y []float64) Trace {
	return Trace{"type": "scatter", "mode": "lines+markers", "name": name, "x": x, "y": y}
}

// Scatter builds a marker-only scatter trace.
func Scatter(name string, x, y []float64) Trace {
	return Trace{"type": "scatter", "mode": "markers", "name": name, "x": x, "y": y}
}

// WithColor sets a single marker color.
func (t Trace) WithColor(color string) Trace {
	t["marker"] = map[string]any{"color": color}
	return t
}

// WithColors sets per-point marker colors.
func (t Trace) WithColors(colors []string) Trace {
	t["marker"] = map[string]any{"colors": colors}
	return t
}

// OnSecondaryAxis draws the trace against the right-hand y axis.
func (t Trace) OnSecondaryAxis() Trace {
	t["yaxis"] = "y2"
	return t
}

// New assembles a figure with a title and axis labels.
func New(title, xTitle, yTitle string, traces ...Trace) *Figure {
	layout := map[string]any{
		"title":  map[string]any{"text": title},
		"height": 420,
	}
	if xTitle != "" {
		layout["xaxis"] = map[string]any{"title": map[string]any{"text": xTitle}}
	}
	if yTitle != "" {
		layout["yaxis"] = map[string]any{"title": map[string]any{"text": yTitle}}
	}

	data := make([]map[string]any, len(traces))
	for i, tr := range traces {
		data[i] = tr
	}
	return &Figure{Data: data, Layout: layout}
}

// SetLayout sets an arbitrary layout key.
func (f *Figure) SetLayout(key string, value any) *Figure {
	if f.Layout == nil {
		f.Layout = map[string]any{}
	}
	f.Layout[key] = value
	return f
}
