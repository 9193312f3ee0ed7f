package errors

import (
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/dayplan/internal/logger"
)

// Sentinel errors shared across packages. Callers test with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrUnsupported         = errors.New("operation not supported")
	ErrNoCurrentSchedule   = errors.New("no current schedule: generate and apply a schedule first")
	ErrReasonerUnavailable = errors.New("reasoning service unavailable")
	ErrUnknownTask         = errors.New("unknown task")
	ErrUnknownNotification = errors.New("unknown notification")
	ErrAlreadyCompleted    = errors.New("task outcome already recorded")
)

// Is and As re-export the standard helpers so callers need a single import.
var (
	Is = errors.Is
	As = errors.As
)

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}
