// Package database connects to a Firestore emulator and resets it between tests.
package database

import "errors"

// EmulatorHostEnv is read by the Firestore client to route traffic to the emulator.
const EmulatorHostEnv = "FIRESTORE_EMULATOR_HOST"

// ErrNoEmulator is returned when EmulatorHostEnv is unset.
var ErrNoEmulator = errors.New(EmulatorHostEnv + " is not set")
