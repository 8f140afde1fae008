// Package permissions checks that the process may use the microphone.
package permissions

import "errors"

// ErrMicrophoneDenied is returned when the user has not granted microphone access.
var ErrMicrophoneDenied = errors.New("microphone permission not granted")
