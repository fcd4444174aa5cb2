// Package timeouts defines shared timeout constants used across the server.
// Centralizing these values prevents drift between the control plane and the
// data plane and makes the durations discoverable.
package timeouts

import "time"

// ControlPlane caps a single metadata request to the remote API (submit,
// status poll, upload-slot creation).
const ControlPlane = 60 * time.Second

// Upload caps one raw byte transfer to a pre-authorized upload URL.
const Upload = 120 * time.Second

// Download caps one artifact download from a pre-authorized URL.
const Download = 60 * time.Second

// ReadHeader limits how long the HTTP transport waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the HTTP transport waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second
