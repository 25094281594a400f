//go:build darwin || freebsd || linux

package binding

import (
	"runtime"

	"github.com/ebitengine/purego"
)

// LibraryFilename returns the platform file name of library name.
func LibraryFilename(name string) string {
	if runtime.GOOS == "darwin" {
		return "lib" + name + ".dylib"
	}
	return "lib" + name + ".so"
}

type defaultLoader struct{}

func (defaultLoader) Open(filename string) (Library, error) {
	h, err := purego.Dlopen(filename, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, err
	}
	return dlLibrary(h), nil
}

type dlLibrary uintptr

func (l dlLibrary) Lookup(name string) (uintptr, error) {
	return purego.Dlsym(uintptr(l), name)
}

func registerFunc(fptr *func(string) int32, addr uintptr) {
	purego.RegisterFunc(fptr, addr)
}
