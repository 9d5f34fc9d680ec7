// Package cache models a tag-only cache level on top of the Akita cache
// directory. A level answers each request with the number of ticks until
// its response is ready, asking its backing store on a miss.
package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
	"github.com/sarchlab/akita/v4/mem/vm"
)

// Config holds cache configuration parameters.
type Config struct {
	Name string

	// Size in bytes
	Size uint64
	// Associativity (number of ways)
	Associativity int
	// BlockSize in bytes (cache line size)
	BlockSize int

	// TagLatency, DataLatency and ResponseLatency are in cycles.
	TagLatency      uint64
	DataLatency     uint64
	ResponseLatency uint64

	// MSHRs bounds the number of misses in flight.
	MSHRs int
	// TargetsPerMSHR is the number of requests one MSHR can merge.
	TargetsPerMSHR int

	// Period is the length of one cycle in ticks.
	Period uint64
}

// NumSets returns the number of sets.
func (c Config) NumSets() int {
	return int(c.Size / uint64(c.Associativity*c.BlockSize))
}

// Request is an access arriving at a level at tick Now.
type Request struct {
	PID   vm.PID
	Addr  uint64
	Write bool
	Now   uint64
}

// BackingStore is the next level in the memory hierarchy.
type BackingStore interface {
	// Access serves req and returns the ticks until the response is ready.
	Access(req Request) (uint64, error)
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Merged     uint64
	Evictions  uint64
	Writebacks uint64
	MSHRStalls uint64
}

type mshrEntry struct {
	pid       vm.PID
	blockAddr uint64
	readyAt   uint64
	targets   int
}

// Cache is one cache level.
type Cache struct {
	config Config

	// Akita cache directory for tag/state management
	directory *akitacache.DirectoryImpl

	mshrs   []mshrEntry
	stats   Statistics
	backing BackingStore
}

// New creates a new cache with the given configuration.
func New(config Config, backing BackingStore) *Cache {
	if config.Period == 0 {
		config.Period = 1
	}

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			config.NumSets(),
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		backing: backing,
	}
}

// Name returns the cache name.
func (c *Cache) Name() string {
	return c.config.Name
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// SetBacking sets the next level.
func (c *Cache) SetBacking(b BackingStore) {
	c.backing = b
}

// Backing returns the next level.
func (c *Cache) Backing() BackingStore {
	return c.backing
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

func (c *Cache) blockAddr(addr uint64) uint64 {
	return addr / uint64(c.config.BlockSize) * uint64(c.config.BlockSize)
}

func (c *Cache) ticks(cycles uint64) uint64 {
	return cycles * c.config.Period
}

// Access looks up the block of req. A hit costs the tag, data and response
// latency. A request to a block still in flight joins its MSHR, or waits for
// the fill when the MSHR has no free target. A miss waits for a free MSHR,
// fetches the block from the backing store and fills it, writing back a
// dirty victim. Writes allocate.
func (c *Cache) Access(req Request) (uint64, error) {
	if req.Write {
		c.stats.Writes++
	} else {
		c.stats.Reads++
	}

	blockAddr := c.blockAddr(req.Addr)
	tagDone := req.Now + c.ticks(c.config.TagLatency)

	block := c.directory.Lookup(req.PID, blockAddr)

	if m := c.findMSHR(req.PID, blockAddr, tagDone); m != nil {
		c.stats.Misses++

		if req.Write && block != nil && block.IsValid {
			block.IsDirty = true
		}

		if m.targets >= c.config.TargetsPerMSHR {
			c.stats.MSHRStalls++
			done := m.readyAt +
				c.ticks(c.config.DataLatency+c.config.ResponseLatency)

			return done - req.Now, nil
		}

		m.targets++
		c.stats.Merged++

		done := max(m.readyAt, tagDone) + c.ticks(c.config.ResponseLatency)

		return done - req.Now, nil
	}

	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)

		if req.Write {
			block.IsDirty = true
		}

		done := tagDone + c.ticks(c.config.DataLatency+c.config.ResponseLatency)

		return done - req.Now, nil
	}

	c.stats.Misses++

	start := c.allocateMSHR(tagDone)

	lower, err := c.fetch(req.PID, blockAddr, start)
	if err != nil {
		return 0, err
	}

	readyAt := start + lower
	c.mshrs = append(c.mshrs, mshrEntry{
		pid:       req.PID,
		blockAddr: blockAddr,
		readyAt:   readyAt,
		targets:   1,
	})

	if err := c.fill(req.PID, blockAddr, req.Write, readyAt); err != nil {
		return 0, err
	}

	done := readyAt + c.ticks(c.config.ResponseLatency)

	return done - req.Now, nil
}

func (c *Cache) fetch(pid vm.PID, blockAddr, now uint64) (uint64, error) {
	if c.backing == nil {
		return 0, nil
	}

	return c.backing.Access(Request{PID: pid, Addr: blockAddr, Now: now})
}

// findMSHR returns the outstanding miss to the same block, if the block is
// still in flight at now.
func (c *Cache) findMSHR(pid vm.PID, blockAddr, now uint64) *mshrEntry {
	for i := range c.mshrs {
		m := &c.mshrs[i]
		if m.readyAt > now && m.pid == pid && m.blockAddr == blockAddr {
			return m
		}
	}

	return nil
}

// allocateMSHR drops completed entries and returns the tick at which a new
// miss can start.
func (c *Cache) allocateMSHR(now uint64) uint64 {
	live := c.mshrs[:0]
	for _, m := range c.mshrs {
		if m.readyAt > now {
			live = append(live, m)
		}
	}

	c.mshrs = live

	if c.config.MSHRs <= 0 || len(c.mshrs) < c.config.MSHRs {
		return now
	}

	c.stats.MSHRStalls++

	earliest := 0
	for i, m := range c.mshrs {
		if m.readyAt < c.mshrs[earliest].readyAt {
			earliest = i
		}
	}

	start := c.mshrs[earliest].readyAt
	c.mshrs = append(c.mshrs[:earliest], c.mshrs[earliest+1:]...)

	return start
}

func (c *Cache) fill(pid vm.PID, blockAddr uint64, dirty bool, now uint64) error {
	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		return nil
	}

	if victim.IsValid {
		c.stats.Evictions++

		if victim.IsDirty && c.backing != nil {
			c.stats.Writebacks++

			_, err := c.backing.Access(Request{
				PID:   victim.PID,
				Addr:  victim.Tag,
				Write: true,
				Now:   now,
			})
			if err != nil {
				return err
			}
		}
	}

	victim.PID = pid
	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = dirty
	c.directory.Visit(victim)

	return nil
}
