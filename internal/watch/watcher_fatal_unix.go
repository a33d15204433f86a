// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package watch

import "syscall"

// fatalErrnos are inotify resource exhaustion codes: the watch limit
// (ENOSPC, fs.inotify.max_user_watches) and the descriptor limits. Large
// .NET trees hit the first one easily.
var fatalErrnos = []syscall.Errno{syscall.ENOSPC, syscall.EMFILE, syscall.ENFILE}

// recoverableErrno is a sample error the watcher logs and survives.
const recoverableErrno = syscall.EACCES
