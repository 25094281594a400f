//go:build !(darwin || freebsd || linux)

package binding

import (
	"errors"
	"runtime"
)

// LibraryFilename returns the platform file name of library name.
func LibraryFilename(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".dll"
	}
	return "lib" + name + ".so"
}

type defaultLoader struct{}

func (defaultLoader) Open(string) (Library, error) {
	return nil, errors.New("dynamic loading is not supported on " + runtime.GOOS)
}

func registerFunc(fptr *func(string) int32, addr uintptr) {
	*fptr = func(string) int32 { return -1 }
}
