package model

import (
	"errors"
	"strings"
)

var ErrCPUIncompatible = errors.New("model is incompatible with a CPU-only environment")

const cpuIncompatibleMessage = "This model was exported for a GPU execution provider and will not run in a CPU environment. " +
	"Export the model again from your training environment with CPU-compatible operators and restart the server."

// LoadError is returned in place of the runtime's own diagnostic when the
// artifact cannot run on this machine's device.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return cpuIncompatibleMessage + " (artifact: " + e.Path + ")"
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Substrings ONNX Runtime reports when a graph is bound to a GPU execution
// provider. A bare missing-kernel error is not enough: opset gaps raise it too.
var deviceMismatchMarkers = []string{
	"CUDAExecutionProvider",
	"CUDA execution provider",
	"TensorrtExecutionProvider",
	"CPU-only",
}

func isDeviceMismatch(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, m := range deviceMismatchMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// clarifyLoadError rewrites device mismatch failures and leaves every other
// error alone.
func clarifyLoadError(path string, err error) error {
	if !isDeviceMismatch(err) {
		return err
	}
	return &LoadError{Path: path, Err: ErrCPUIncompatible}
}
