package config

// Loader loads configuration into a target struct.
type Loader interface {
	// Load fills target, applying defaults and validation
	Load(target any) error

	// Watch invokes callback whenever the underlying source changes
	Watch(callback func()) error
}
