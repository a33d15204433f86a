// SPDX-License-Identifier: MPL-2.0

//go:build windows

package watch

import "syscall"

// fatalErrnos are Win32 codes after which ReadDirectoryChangesW cannot
// continue: handle exhaustion, an invalidated handle (watched root deleted)
// and buffer exhaustion.
var fatalErrnos = []syscall.Errno{
	syscall.Errno(4), // ERROR_TOO_MANY_OPEN_FILES
	syscall.Errno(6), // ERROR_INVALID_HANDLE
	syscall.Errno(8), // ERROR_NOT_ENOUGH_MEMORY
}

// recoverableErrno is a sample error the watcher logs and survives.
const recoverableErrno = syscall.Errno(5) // ERROR_ACCESS_DENIED
