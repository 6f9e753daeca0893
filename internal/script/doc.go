// Package script loads playback scripts and provides the line-level
// vocabulary shared by the interpreter and the static checker: keyword
// extraction, comment detection, the var/play/jumpto line shapes, and
// Check, which reports every problem in a script without running it.
package script
