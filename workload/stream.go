package workload

import (
	"github.com/sarchlab/mctopo/fu"
)

// Op is one dynamic instruction.
type Op struct {
	Class fu.OpClass
	PC    uint64

	// Addr is the data address of memory operations.
	Addr uint64
}

type compiledStep struct {
	class    fu.OpClass
	pc       uint64
	hasAddr  bool
	base     uint64
	elemSize uint64
	wrap     uint64
}

// Stream produces the dynamic instructions one thread executes.
type Stream struct {
	steps    []compiledStep
	iter     uint64
	end      uint64
	infinite bool
	pos      int
	issued   uint64
}

// Stream creates the instruction stream of thread `thread` out of `threads`
// threads running the program with argv.
func (p *Program) Stream(argv []string, thread, threads int) (*Stream, error) {
	if threads < 1 || thread < 0 || thread >= threads {
		return nil, bad(p, "thread %d of %d", thread, threads)
	}

	total, finite, err := p.TotalIterations(argv)
	if err != nil {
		return nil, err
	}

	s := &Stream{infinite: !finite, end: total}

	if finite && p.Partition == "threads" {
		chunk := total / uint64(threads)
		if total%uint64(threads) != 0 {
			chunk++
		}

		s.iter = min(total, uint64(thread)*chunk)
		s.end = s.iter + min(chunk, total-s.iter)
	}

	regions := make(map[string]Region, len(p.Regions))
	for _, r := range p.Regions {
		regions[r.Name] = r
	}

	for i, st := range p.Body {
		cs := compiledStep{
			class: st.Op,
			pc:    p.TextBase + uint64(i)*InstBytes,
		}

		if st.Region != "" {
			r := regions[st.Region]
			cs.hasAddr = true
			cs.base = r.Base
			cs.elemSize = r.ElemSize

			if r.Count != "" {
				cs.wrap, err = p.regionLen(r, argv)
				if err != nil {
					return nil, err
				}
			}
		}

		s.steps = append(s.steps, cs)
	}

	return s, nil
}

// Next returns the next instruction. It returns false once the program has
// finished.
func (s *Stream) Next() (Op, bool) {
	if s.Done() {
		return Op{}, false
	}

	cs := s.steps[s.pos]
	op := Op{Class: cs.class, PC: cs.pc}

	if cs.hasAddr {
		idx := s.iter
		if cs.wrap > 0 {
			idx %= cs.wrap
		}

		op.Addr = cs.base + idx*cs.elemSize
	}

	s.pos++
	if s.pos == len(s.steps) {
		s.pos = 0
		s.iter++
	}

	s.issued++

	return op, true
}

// Done reports whether every instruction has been produced.
func (s *Stream) Done() bool {
	return !s.infinite && s.iter >= s.end
}

// Issued returns how many instructions Next has produced.
func (s *Stream) Issued() uint64 {
	return s.issued
}
