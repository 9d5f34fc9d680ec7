package memmap

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBadSize is returned when a size string cannot be parsed.
var ErrBadSize = errors.New("invalid size")

// Size suffixes are binary multiples, so "32kB" is 32768 bytes.
var sizeUnits = []struct {
	suffix string
	scale  uint64
}{
	{"KiB", 1 << 10},
	{"MiB", 1 << 20},
	{"GiB", 1 << 30},
	{"TiB", 1 << 40},
	{"kB", 1 << 10},
	{"KB", 1 << 10},
	{"MB", 1 << 20},
	{"GB", 1 << 30},
	{"TB", 1 << 40},
	{"B", 1},
}

// ParseSize converts strings such as "32kB", "256KiB" or "4GB" to a number
// of bytes. A bare number is taken as bytes.
func ParseSize(s string) (uint64, error) {
	str := strings.TrimSpace(s)
	scale := uint64(1)

	for _, u := range sizeUnits {
		if strings.HasSuffix(str, u.suffix) {
			str = strings.TrimSpace(strings.TrimSuffix(str, u.suffix))
			scale = u.scale

			break
		}
	}

	n, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w %q", ErrBadSize, s)
	}

	if n != 0 && n*scale/scale != n {
		return 0, fmt.Errorf("%w %q: too large", ErrBadSize, s)
	}

	return n * scale, nil
}

// MustParseSize is like ParseSize but panics on malformed input. It is meant
// for constants.
func MustParseSize(s string) uint64 {
	n, err := ParseSize(s)
	if err != nil {
		panic(err)
	}

	return n
}
