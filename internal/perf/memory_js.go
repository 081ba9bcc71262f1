//go:build js && wasm

package perf

import (
	"errors"
	"syscall/js"
)

// #region heap-reader

var errNoMemoryAPI = errors.New("performance.memory unavailable")

// HeapReader reads performance.memory.usedJSHeapSize where the browser exposes it.
type HeapReader struct{}

// NewHeapReader returns the platform heap reader.
func NewHeapReader() MemoryReader {
	return HeapReader{}
}

func (HeapReader) HeapMB() (mb int, err error) {
	defer func() {
		if r := recover(); r != nil {
			mb, err = 0, errNoMemoryAPI
		}
	}()
	perf := js.Global().Get("performance")
	if !perf.Truthy() {
		return 0, errNoMemoryAPI
	}
	mem := perf.Get("memory")
	if !mem.Truthy() {
		return 0, errNoMemoryAPI
	}
	return int(mem.Get("usedJSHeapSize").Float() / (1 << 20)), nil
}

// #endregion heap-reader
