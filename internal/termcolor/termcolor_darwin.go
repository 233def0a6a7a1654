//go:build darwin

package termcolor

import "golang.org/x/sys/unix"

// Supported reports whether fd refers to a terminal.
func Supported(fd uintptr) bool {
	_, err := unix.IoctlGetTermios(int(fd), unix.TIOCGETA)
	return err == nil
}
