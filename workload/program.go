package workload

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/mctopo/fu"
	"github.com/sarchlab/mctopo/loader"
	"github.com/sarchlab/mctopo/memmap"
)

// ErrBadProgram is returned for malformed kernel descriptions.
var ErrBadProgram = errors.New("bad program")

// InstBytes is the size of one encoded instruction in the text segment.
const InstBytes = 4

// Region is a data array a program walks through. Element i of the array
// lives at Base + i*ElemSize.
type Region struct {
	Name     string `yaml:"name"`
	Base     uint64 `yaml:"base"`
	ElemSize uint64 `yaml:"elem_size"`

	// Count is the number of elements, as a number or an argv reference
	// such as "$1". Empty means one element per iteration. Accesses wrap
	// around Count.
	Count string `yaml:"count,omitempty"`
}

// Step is one instruction of the loop body.
type Step struct {
	Op     fu.OpClass `yaml:"op"`
	Region string     `yaml:"region,omitempty"`
}

// Program is a synthetic kernel: a loop body repeated a number of times.
type Program struct {
	Name string `yaml:"name"`

	// Iterations is a number, an argv reference such as "$1", or "inf".
	Iterations string `yaml:"iterations"`

	// Partition is "none" or "threads". With "threads" the iterations are
	// split in contiguous chunks over the threads running the program.
	Partition string `yaml:"partition"`

	TextBase uint64   `yaml:"text_base"`
	Regions  []Region `yaml:"regions"`
	Body     []Step   `yaml:"body"`

	// Image optionally names the executable the kernel models, relative to
	// the description file. Its loadable segments count towards the
	// footprint and its entry point is the default text base.
	Image string `yaml:"image,omitempty"`

	image *loader.Image
}

// AttachImage makes img part of the program's memory image.
func (p *Program) AttachImage(img *loader.Image) {
	p.image = img
	if p.TextBase == 0 {
		p.TextBase = img.Entry
	}
}

// ParseProgram decodes a YAML kernel description.
func ParseProgram(data []byte) (*Program, error) {
	p := &Program{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadProgram, err)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

func bad(p *Program, format string, args ...any) error {
	return fmt.Errorf("%w %q: %s", ErrBadProgram, p.Name, fmt.Sprintf(format, args...))
}

// Validate checks that the program is well formed.
func (p *Program) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: missing name", ErrBadProgram)
	}

	if len(p.Body) == 0 {
		return bad(p, "empty body")
	}

	switch p.Partition {
	case "", "none", "threads":
	default:
		return bad(p, "unknown partition %q", p.Partition)
	}

	regions := make(map[string]bool, len(p.Regions))
	for _, r := range p.Regions {
		if r.Name == "" || r.ElemSize == 0 {
			return bad(p, "region needs a name and a non-zero elem_size")
		}

		if regions[r.Name] {
			return bad(p, "duplicate region %q", r.Name)
		}

		regions[r.Name] = true
	}

	for i, s := range p.Body {
		switch {
		case s.Op == fu.OpNone:
			return bad(p, "step %d has no op class", i)
		case s.Op.IsMemory() && s.Region == "":
			return bad(p, "step %d (%s) needs a region", i, s.Op)
		case !s.Op.IsMemory() && s.Region != "":
			return bad(p, "step %d (%s) cannot access memory", i, s.Op)
		case s.Region != "" && !regions[s.Region]:
			return bad(p, "step %d uses unknown region %q", i, s.Region)
		}
	}

	return nil
}

// resolveCount evaluates a number, an argv reference or "inf". It returns
// ok=false for "inf".
func (p *Program) resolveCount(expr string, argv []string) (n uint64, ok bool, err error) {
	expr = strings.TrimSpace(expr)
	if expr == "inf" {
		return 0, false, nil
	}

	if strings.HasPrefix(expr, "$") {
		idx, err := strconv.Atoi(expr[1:])
		if err != nil || idx < 0 {
			return 0, false, bad(p, "bad argument reference %q", expr)
		}

		if idx >= len(argv) {
			return 0, false, bad(p, "argument %s is missing", expr)
		}

		expr = argv[idx]
	}

	n, err = strconv.ParseUint(expr, 0, 64)
	if err != nil {
		return 0, false, bad(p, "bad count %q", expr)
	}

	return n, true, nil
}

// TotalIterations returns the loop trip count for argv. finite is false for
// programs that never exit.
func (p *Program) TotalIterations(argv []string) (n uint64, finite bool, err error) {
	return p.resolveCount(p.Iterations, argv)
}

func (p *Program) regionLen(r Region, argv []string) (uint64, error) {
	if r.Count != "" {
		n, ok, err := p.resolveCount(r.Count, argv)
		if err != nil {
			return 0, err
		}

		if !ok || n == 0 {
			return 0, bad(p, "region %q needs a finite, non-zero count", r.Name)
		}

		return n, nil
	}

	n, finite, err := p.TotalIterations(argv)
	if err != nil {
		return 0, err
	}

	if !finite {
		return 0, bad(p, "region %q is unbounded", r.Name)
	}

	return n, nil
}

// Footprint returns every address range the program references when run
// with argv: its text segment, each data region and the segments of its
// image, if any.
func (p *Program) Footprint(argv []string) ([]memmap.AddressRange, error) {
	text, ok := mulSize(uint64(len(p.Body)), InstBytes)
	if !ok {
		return nil, bad(p, "text segment overflows the address space")
	}

	ranges := []memmap.AddressRange{{Base: p.TextBase, Size: text}}

	for _, r := range p.Regions {
		n, err := p.regionLen(r, argv)
		if err != nil {
			return nil, err
		}

		if n == 0 {
			continue
		}

		size, ok := mulSize(n, r.ElemSize)
		if !ok {
			return nil, bad(p, "region %q of %d elements overflows the address space",
				r.Name, n)
		}

		ranges = append(ranges, memmap.AddressRange{Base: r.Base, Size: size})
	}

	if p.image != nil {
		ranges = append(ranges, p.image.Ranges()...)
	}

	return ranges, nil
}

// mulSize returns n*elem, and false when the product does not fit in 64 bits.
func mulSize(n, elem uint64) (uint64, bool) {
	hi, lo := bits.Mul64(n, elem)
	return lo, hi == 0
}
