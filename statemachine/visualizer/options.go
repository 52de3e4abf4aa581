package visualizer

// Options configures the visualization output.
type Options struct {
	// ShowTransitions labels edges with the transition name
	ShowTransitions bool

	// ShowWeights appends selection weights to edge labels of random states
	ShowWeights bool

	// ShowDelays appends transition delays to edge labels
	ShowDelays bool

	// Direction controls diagram flow: "TD" (top-down) or "LR" (left-right)
	Direction string

	// HighlightPath highlights a specific state path through the diagram
	HighlightPath []string

	// Fenced wraps the diagram into a markdown code fence
	Fenced bool
}

// DefaultOptions returns sensible defaults for visualization.
func DefaultOptions() Options {
	return Options{
		ShowTransitions: true,
		ShowWeights:     true,
		ShowDelays:      false,
		Direction:       "TD",
		Fenced:          true,
	}
}

// WithShowTransitions enables/disables transition name labels.
func (o Options) WithShowTransitions(show bool) Options {
	o.ShowTransitions = show

	return o
}

// WithShowWeights enables/disables weight labels.
func (o Options) WithShowWeights(show bool) Options {
	o.ShowWeights = show

	return o
}

// WithShowDelays enables/disables delay labels.
func (o Options) WithShowDelays(show bool) Options {
	o.ShowDelays = show

	return o
}

// WithDirection sets the diagram direction.
func (o Options) WithDirection(direction string) Options {
	o.Direction = direction

	return o
}

// WithHighlightPath sets states to highlight.
func (o Options) WithHighlightPath(path []string) Options {
	o.HighlightPath = path

	return o
}

// WithFenced enables/disables the markdown code fence.
func (o Options) WithFenced(fenced bool) Options {
	o.Fenced = fenced

	return o
}
