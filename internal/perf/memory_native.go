//go:build !js || !wasm

package perf

import "runtime"

// #region heap-reader

// HeapReader reports the Go heap in use.
type HeapReader struct{}

// NewHeapReader returns the platform heap reader.
func NewHeapReader() MemoryReader {
	return HeapReader{}
}

func (HeapReader) HeapMB() (int, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return int(ms.HeapAlloc / (1 << 20)), nil
}

// #endregion heap-reader
