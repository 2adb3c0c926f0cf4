// Package web includes the static dashboard served by the monitor.
package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DevModeEnv names the environment variable that makes the monitor serve the
// dashboard from the source tree instead of the embedded copy.
const DevModeEnv = "HVMM_MONITOR_DEV"

//go:embed dist/*
var staticAssets embed.FS

// GetAssets returns the static assets
func GetAssets() http.FileSystem {
	if isDevelopmentMode() {
		dir := sourceDir()

		fmt.Fprintf(os.Stderr,
			"In monitoring tool development mode, serving assets from %s\n", dir)

		return http.Dir(dir)
	}

	subFS, err := fs.Sub(staticAssets, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(subFS)
}

// sourceDir is the dist directory next to this file.
func sourceDir() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		panic("error getting path")
	}

	return filepath.Join(filepath.Dir(file), "dist")
}

func isDevelopmentMode() bool {
	evValue, exist := os.LookupEnv(DevModeEnv)
	if !exist {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(evValue)) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}
