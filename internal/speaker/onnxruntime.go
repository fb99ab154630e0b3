package speaker

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	onnxOnce sync.Once
	onnxErr  error
)

// initONNXRuntime locates and loads the onnxruntime shared library
// once per process, adapted from the teacher's ai.initONNXRuntime.
func initONNXRuntime() error {
	onnxOnce.Do(func() {
		libPath := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")
		if libPath == "" {
			for _, path := range []string{
				"./libonnxruntime.so",
				"./libonnxruntime.dylib",
				"/usr/lib/libonnxruntime.so",
				"/usr/local/lib/libonnxruntime.so",
			} {
				if _, statErr := os.Stat(path); statErr == nil {
					libPath = path
					break
				}
			}
		}
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}

		if err := ort.InitializeEnvironment(); err != nil {
			onnxErr = fmt.Errorf("initialize onnxruntime: %w", err)
			return
		}
		slog.Info("onnxruntime initialized", "library_path", libPath)
	})
	return onnxErr
}
