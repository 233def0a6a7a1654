//go:build linux

package termcolor

import "golang.org/x/sys/unix"

// Supported reports whether fd refers to a terminal, so compile/extract
// only colorize output a human is actually looking at rather than a
// pipe or redirected file.
func Supported(fd uintptr) bool {
	_, err := unix.IoctlGetTermios(int(fd), unix.TCGETS)
	return err == nil
}
