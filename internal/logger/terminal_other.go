//go:build !windows && !linux

package logger

import "golang.org/x/sys/unix"

const termiosGetAttr = unix.TIOCGETA
