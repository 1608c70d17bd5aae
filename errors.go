package main

import "fmt"

// ConfigError reports a missing or malformed configuration key.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config: %s: %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// UnsupportedHostError is returned when the OS is not one of the known host variants.
type UnsupportedHostError struct {
	OS   string
	Arch string
}

func (e *UnsupportedHostError) Error() string {
	return fmt.Sprintf("unsupported host %s/%s", e.OS, e.Arch)
}

// ProbeError describes a failed address lookup. Probes never return it to
// callers; it only shows up in logs.
type ProbeError struct {
	Probe string
	Err   error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("%s probe: %v", e.Probe, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// MissingAssetError aborts a render when the branding image cannot be read.
type MissingAssetError struct {
	Path string
	Err  error
}

func (e *MissingAssetError) Error() string {
	return fmt.Sprintf("branding asset %s: %v", e.Path, e.Err)
}

func (e *MissingAssetError) Unwrap() error { return e.Err }

// AuthenticationError means the SMTP server rejected the sender credentials.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("smtp authentication: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// TransportError covers connection and TLS failures.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("smtp transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DeliveryError means the server refused the message after the session was established.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("smtp delivery: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
