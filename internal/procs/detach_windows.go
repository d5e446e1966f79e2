//go:build windows

package procs

import "syscall"

// CREATE_NEW_PROCESS_GROUP keeps Ctrl+C in the parent console from reaching
// the child.
func detached() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: 0x00000200}
}
