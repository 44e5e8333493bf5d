package client

// Device defines the interface for scanner devices (serial or loopback).
type Device interface {
	Connect() error
	Close() error
	// Trigger requests one scan.
	Trigger() error
	// Stop terminates the remote sampler loop.
	Stop() error
	Samples() <-chan Sample
	IsConnected() bool
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Loopback implements Device.
var _ Device = (*Loopback)(nil)
