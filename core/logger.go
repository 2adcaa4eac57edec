package core

// Logger is any leveled logger. Implementations may inspect args for known
// types (eg. errors) and report them to an external service.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}
