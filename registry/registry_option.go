package registry

type RegisterOption func(*registerConfig)

// WithReplace allows replacing an already registered kind, including the built-in ones.
func WithReplace() RegisterOption {
	return func(cfg *registerConfig) {
		cfg.Replace = true
	}
}
