// Package log provides a high level logger abstraction so that packages
// under github.com/vdparikh/ffs never take a direct dependency on a
// concrete logging backend. Modeled on DataDog-go-secure-sdk's Logger
// interface shape, minus its process-wide static factory and the
// Factory indirection that backed it: callers inject a Logger
// explicitly (keyservice.Client, tinkfpe.KeyManager) rather than reach
// for a package-level singleton, so two unrelated Contexts in the same
// process can log to different places.
package log

// Level marks the severity of a log entry.
type Level int

const (
	// UnsetLevel should never be emitted by a Logger implementation.
	UnsetLevel Level = iota - 2
	// DebugLevel marks detailed, high-volume diagnostic output.
	DebugLevel
	// InfoLevel is the default output level.
	InfoLevel
	// ErrorLevel marks a failure worth surfacing regardless of the
	// configured threshold.
	ErrorLevel
)

// Logger is a chainable structured logger. Every method but Message and
// Messagef returns a Logger so call sites can build a single log entry
// fluently: logger.Field("dataset", name).Error(err).Message("decrypt failed").
type Logger interface {
	Level(lvl Level) Logger
	Field(k string, v any) Logger
	Fields(data map[string]any) Logger
	Error(err error) Logger
	Message(msg string)
	Messagef(format string, v ...any)
}
