// Package loader reads the memory image of an executable: its entry point
// and the address ranges its loadable segments occupy.
package loader

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/mctopo/memmap"
)

// ErrNotExecutable is returned for files that are not 64-bit ELF
// executables.
var ErrNotExecutable = errors.New("not a 64-bit ELF executable")

var elfMagic = []byte{0x7f, 'E', 'L', 'F'}

// SegmentFlags are the protection flags of a segment.
type SegmentFlags uint32

// Segment flags.
const (
	SegmentFlagExecute SegmentFlags = 1 << iota
	SegmentFlagWrite
	SegmentFlagRead
)

// Segment is one PT_LOAD segment. MemSize may exceed FileSize for BSS.
type Segment struct {
	VirtAddr uint64
	FileSize uint64
	MemSize  uint64
	Flags    SegmentFlags
}

// Range returns the addresses the segment occupies in memory.
func (s Segment) Range() memmap.AddressRange {
	return memmap.AddressRange{Base: s.VirtAddr, Size: s.MemSize}
}

// Image is the memory layout of an executable.
type Image struct {
	Path     string
	Machine  elf.Machine
	Entry    uint64
	Segments []Segment
}

// IsELF reports whether data starts with the ELF magic number.
func IsELF(data []byte) bool {
	return bytes.HasPrefix(data, elfMagic)
}

// Load reads the program headers of the ELF executable at path.
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Read(path, f)
}

// Read parses an ELF executable from r. The name is used in errors.
func Read(name string, r io.ReaderAt) (*Image, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotExecutable, name, err)
	}

	if f.Class != elf.ELFCLASS64 {
		return nil, fmt.Errorf("%w: %s is %v", ErrNotExecutable, name, f.Class)
	}

	img := &Image{Path: name, Machine: f.Machine, Entry: f.Entry}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD || phdr.Memsz == 0 {
			continue
		}

		var flags SegmentFlags
		if phdr.Flags&elf.PF_X != 0 {
			flags |= SegmentFlagExecute
		}
		if phdr.Flags&elf.PF_W != 0 {
			flags |= SegmentFlagWrite
		}
		if phdr.Flags&elf.PF_R != 0 {
			flags |= SegmentFlagRead
		}

		img.Segments = append(img.Segments, Segment{
			VirtAddr: phdr.Vaddr,
			FileSize: phdr.Filesz,
			MemSize:  phdr.Memsz,
			Flags:    flags,
		})
	}

	if len(img.Segments) == 0 {
		return nil, fmt.Errorf("%w: %s has no loadable segment",
			ErrNotExecutable, name)
	}

	return img, nil
}

// Ranges returns the ranges of every loadable segment.
func (img *Image) Ranges() []memmap.AddressRange {
	ranges := make([]memmap.AddressRange, len(img.Segments))
	for i, s := range img.Segments {
		ranges[i] = s.Range()
	}

	return ranges
}
