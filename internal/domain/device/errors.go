package device

import "errors"

var (
	ErrFingerprintNotFound = errors.New("device fingerprint not found")
	ErrFingerprintExists   = errors.New("device fingerprint already registered")
	ErrNoAttributes        = errors.New("no device attributes supplied")
)
