package tlsf

import (
	"fmt"
	"log/slog"

	"github.com/joshuapare/tlsfkit/internal/align"
)

// Pool is a TLSF allocator over one or more caller supplied areas.
//
// A Pool is not safe for concurrent use. Callers serialize access or confine the
// pool to one goroutine (see malloc.Locked).
type Pool struct {
	areas areaTable
	index freeIndex

	stats   Stats
	used    uint64 // live payload + headers, diagnostics builds only
	maxUsed uint64

	opts      Options
	log       *slog.Logger
	destroyed bool
}

// New creates a pool over region. The region is carved into one free block bounded
// by two permanently used sentinels; its start and length are trimmed to Alignment.
// The pool keeps a reference to region: the caller must not touch it until Destroy.
//
// Returns ErrInvalidArea if fewer than MinAreaSize aligned bytes remain, or if the
// region is too large to be described by a single block.
func New(region []byte, opts *Options) (*Pool, error) {
	if opts == nil {
		def := DefaultOptions()
		opts = &def
	}
	p := &Pool{
		opts: *opts,
		log:  opts.logger(),
	}
	p.index.areas = &p.areas

	if err := p.addArea(region); err != nil {
		p.log.Warn("tlsf: pool rejected", "region", len(region), "error", err)
		return nil, err
	}
	p.log.Info("tlsf: pool created", "region", len(region), "usable", p.index.bytes)
	return p, nil
}

// AddArea registers another region with the pool. Areas need not be contiguous;
// blocks never coalesce across areas. Existing allocations are not moved.
//
// Returns ErrInvalidArea and leaves the pool untouched if the region is unusable.
func (p *Pool) AddArea(region []byte) error {
	p.mustLive()
	if err := p.addArea(region); err != nil {
		p.log.Warn("tlsf: area rejected", "area", len(p.areas.mem), "region", len(region), "error", err)
		return err
	}
	p.log.Info("tlsf: area added", "area", len(p.areas.mem)-1, "region", len(region))
	p.verifyIfEnabled()
	return nil
}

// Destroy invalidates the pool. Outstanding allocations are not freed and their
// Ptr values become meaningless. Any further call on the pool panics.
func (p *Pool) Destroy() {
	p.mustLive()
	p.log.Info("tlsf: pool destroyed", "areas", len(p.areas.mem))
	p.areas.mem = nil
	p.index.reset()
	p.destroyed = true
}

// Areas returns the number of registered areas.
func (p *Pool) Areas() int {
	p.mustLive()
	return len(p.areas.mem)
}

// addArea lays out an area as
//
//	[lead sentinel][block header | payload ...][trail sentinel]
//
// and files the single free block.
func (p *Pool) addArea(region []byte) error {
	mem := align.Trim(region)
	if len(mem) < MinAreaSize {
		return fmt.Errorf("%w: %d aligned bytes, need %d", ErrInvalidArea, len(mem), MinAreaSize)
	}
	size := uint64(len(mem)) - AreaOverhead
	if size > maxBlockSize {
		return fmt.Errorf("%w: %d bytes exceeds the largest block (%d)", ErrInvalidArea, size, uint64(maxBlockSize))
	}
	if len(p.areas.mem) >= maxAreas {
		return fmt.Errorf("%w: area table full", ErrInvalidArea)
	}

	idx := len(p.areas.mem)
	p.areas.mem = append(p.areas.mem, mem)

	lead := makeRef(idx, 0)
	blk := lead.next(0)
	trail := blk.next(size)

	p.areas.setHeader(lead, header{})
	p.areas.setHeader(blk, header{prevPhys: lead.offset(), size: size, free: true})
	p.areas.setHeader(trail, header{prevPhys: blk.offset(), prevFree: true})
	p.index.insert(blk, size)
	return nil
}

func (p *Pool) mustLive() {
	if p.destroyed {
		panic(msgDestroyed)
	}
}

func (p *Pool) verifyIfEnabled() {
	if !p.opts.VerifyEveryOp {
		return
	}
	if err := p.Verify(); err != nil {
		panic(err)
	}
}
