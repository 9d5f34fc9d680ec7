package workload

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sarchlab/mctopo/loader"
)

// ErrUnknownBinary is returned when a binary resolves to no program.
var ErrUnknownBinary = errors.New("unknown binary")

//go:embed kernels/*.yaml
var builtinKernels embed.FS

// A Resolver turns a workload binary into the program it runs.
type Resolver interface {
	Resolve(binary string) (*Program, error)
}

// Library resolves binaries against registered programs first and kernel
// description files on disk second.
type Library struct {
	programs map[string]*Program
}

// NewLibrary returns a library holding the built-in kernels.
func NewLibrary() *Library {
	l := &Library{programs: make(map[string]*Program)}

	entries, err := fs.ReadDir(builtinKernels, "kernels")
	if err != nil {
		panic(err)
	}

	for _, e := range entries {
		data, err := builtinKernels.ReadFile(path.Join("kernels", e.Name()))
		if err != nil {
			panic(err)
		}

		p, err := ParseProgram(data)
		if err != nil {
			panic(err)
		}

		l.Register(p)
	}

	return l
}

// Register adds a program under its name.
func (l *Library) Register(p *Program) {
	l.programs[p.Name] = p
}

// Names returns the registered program names in sorted order.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.programs))
	for n := range l.programs {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}

// Resolve finds the program of a binary. Registered programs match on the
// full name or on the base name without extension, so
// "tests/test-progs/multi_thread_daxpy" finds the built-in DAXPY kernel.
// Otherwise the binary is read as a YAML kernel description, together with
// the executable image it names.
func (l *Library) Resolve(binary string) (*Program, error) {
	if p, ok := l.programs[binary]; ok {
		return p, nil
	}

	base := filepath.Base(binary)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	if p, ok := l.programs[base]; ok {
		return p, nil
	}

	data, err := os.ReadFile(binary)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBinary, binary)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read program %s: %w", binary, err)
	}

	if loader.IsELF(data) {
		return nil, fmt.Errorf(
			"%w: %s is an executable; describe its kernel in YAML and "+
				"reference it with image:", ErrUnknownBinary, binary)
	}

	p, err := ParseProgram(data)
	if err != nil {
		return nil, err
	}

	if p.Image != "" {
		imgPath := p.Image
		if !filepath.IsAbs(imgPath) {
			imgPath = filepath.Join(filepath.Dir(binary), imgPath)
		}

		img, err := loader.Load(imgPath)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrBadProgram, p.Name, err)
		}

		p.AttachImage(img)
	}

	return p, nil
}
