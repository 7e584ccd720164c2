//go:build unix

package bot

import (
	"os"
	"syscall"
)

// reexec replaces the current process image with a fresh copy of the binary,
// keeping the original arguments and environment.
func reexec() error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	return syscall.Exec(executable, os.Args, os.Environ())
}
