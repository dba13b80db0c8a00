//go:build !linux && !darwin

package logger

// isTerminal reports false on platforms without termios support;
// output falls back to plain text.
func isTerminal(fd uintptr) bool {
	return false
}
