package order

import "github.com/rs/zerolog"

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a non-blocking message for the operator.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelError:
		return zerolog.ErrorLevel
	case LevelWarning:
		return zerolog.WarnLevel
	}
	return zerolog.InfoLevel
}
