package core

// Logger is any service that can record messages.
// args may hold errors and maps of extra data.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Owner tags a log entry with the owner it concerns.
type Owner struct {
	ID string
}
