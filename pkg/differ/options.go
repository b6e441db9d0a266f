package differ

// Option is a functional option for configuring a Differ.
type Option func(*differ)

// WithPrune enables or disables reporting remote resources that are not
// in the definition.
func WithPrune(enabled bool) Option {
	return func(d *differ) {
		d.prune = enabled
	}
}

// WithModelCleanup enables or disables reporting remote models that are
// not in the definition.
func WithModelCleanup(enabled bool) Option {
	return func(d *differ) {
		d.modelCleanup = enabled
	}
}
