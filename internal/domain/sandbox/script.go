package sandbox

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/dop251/goja"
	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/gzip"
)

// ReadScript reads a framework bundle, decompressing gzip bundles
func ReadScript(path string) (string, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detect %s: %w", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	if mtype.Is("application/gzip") {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return "", fmt.Errorf("open gzip %s: %w", path, err)
		}
		defer zr.Close()

		if data, err = io.ReadAll(zr); err != nil {
			return "", fmt.Errorf("decompress %s: %w", path, err)
		}
	}

	return string(data), nil
}

// Programs caches compiled bundles by path. A compiled program is immutable
// and can be run by any number of VMs.
type Programs struct {
	mu       sync.Mutex
	programs map[string]*goja.Program
}

// NewPrograms creates an empty program cache
func NewPrograms() *Programs {
	return &Programs{programs: make(map[string]*goja.Program)}
}

// Get returns the compiled bundle at path
func (p *Programs) Get(path string) (*goja.Program, error) {
	if p == nil {
		return compileFile(path)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if prg, ok := p.programs[path]; ok {
		return prg, nil
	}
	prg, err := compileFile(path)
	if err != nil {
		return nil, err
	}
	p.programs[path] = prg
	return prg, nil
}

// Len returns the number of cached programs
func (p *Programs) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.programs)
}

func compileFile(path string) (*goja.Program, error) {
	src, err := ReadScript(path)
	if err != nil {
		return nil, err
	}
	prg, err := goja.Compile(filepath.Base(path), src, false)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", path, err)
	}
	return prg, nil
}
