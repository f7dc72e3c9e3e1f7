package embeddings

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// onnxPathEnv is read by the ONNX runtime bindings to locate the shared
// library.
const onnxPathEnv = "ONNX_PATH"

var libraryNames = map[string]string{
	"linux":  "libonnxruntime.so",
	"darwin": "libonnxruntime.dylib",
}

func onnxLibraryName(goos string) string {
	if name, ok := libraryNames[goos]; ok {
		return name
	}
	return "libonnxruntime.so"
}

// onnxInstallDir is the managed install location for the runtime library.
func onnxInstallDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", "leavelens", "lib")
}

// ONNXLibraryPath returns the runtime library to load: ONNX_PATH if set,
// else the managed install if present, else "".
func ONNXLibraryPath() string {
	if p := os.Getenv(onnxPathEnv); p != "" {
		return p
	}
	managed := filepath.Join(onnxInstallDir(), onnxLibraryName(runtime.GOOS))
	if _, err := os.Stat(managed); err == nil {
		return managed
	}
	return ""
}

// configureONNXRuntime points the bindings at the managed install when the
// user has not set ONNX_PATH. An explicit ONNX_PATH must exist.
func configureONNXRuntime() error {
	if p := os.Getenv(onnxPathEnv); p != "" {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, onnxPathEnv, p, err)
		}
		return nil
	}
	if p := ONNXLibraryPath(); p != "" {
		return os.Setenv(onnxPathEnv, p)
	}
	return nil
}
