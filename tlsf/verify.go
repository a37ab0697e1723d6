package tlsf

import "fmt"

// ValidationError reports a broken pool invariant.
type ValidationError struct {
	Type    string // invariant family: "Area", "Block", "Index", "Accounting"
	Message string
	Area    int // -1 if not tied to an area
	Offset  int // header offset inside the area, -1 if N/A
}

func (e *ValidationError) Error() string {
	if e.Area >= 0 && e.Offset >= 0 {
		return fmt.Sprintf("%s: area %d offset 0x%X: %s", e.Type, e.Area, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func verr(typ string, area int, off uint64, format string, args ...any) error {
	return &ValidationError{Type: typ, Message: fmt.Sprintf(format, args...), Area: area, Offset: int(off)}
}

func indexErr(format string, args ...any) error {
	return &ValidationError{Type: "Index", Message: fmt.Sprintf(format, args...), Area: -1, Offset: -1}
}

// Verify walks every area and the free-list index and checks the pool invariants:
//
//   - every area is bounded by used zero-sized sentinels;
//   - block sizes are aligned, at least the minimum, and tile the area exactly;
//   - boundary tags (previous offset, previous-free flag) match the physical layout;
//   - no two free blocks are physically adjacent;
//   - a block is linked in exactly the class list its size maps to iff it is free;
//   - a bitmap bit is set iff its list is non-empty;
//   - free and used byte accounting agree with the layout.
//
// It returns the first violation as a *ValidationError. O(blocks).
func (p *Pool) Verify() error {
	p.mustLive()

	linked, err := p.verifyIndex()
	if err != nil {
		return err
	}

	freeBlocks := 0
	freeBytes := uint64(0)
	usedBytes := uint64(0)

	for area, mem := range p.areas.mem {
		if len(mem) < MinAreaSize || !isAligned(len(mem)) {
			return verr("Area", area, 0, "bad area length %d", len(mem))
		}
		end := uint64(len(mem)) - headerSize

		lead := makeRef(area, 0)
		if h := p.areas.header(lead); h.size != 0 || h.free {
			return verr("Area", area, 0, "leading sentinel corrupt (size %d, free %v)", h.size, h.free)
		}

		prev, prevFree := lead, false
		ref := lead.next(0)
		for ref.offset() < end {
			off := ref.offset()
			h := p.areas.header(ref)
			switch {
			case h.size < minBlockSize:
				return verr("Block", area, off, "size %d below minimum %d", h.size, minBlockSize)
			case !isAligned(int(h.size)):
				return verr("Block", area, off, "size %d not aligned to %d", h.size, Alignment)
			case off+headerSize+h.size > end:
				return verr("Block", area, off, "size %d runs past the area end", h.size)
			case h.prevPhys != prev.offset():
				return verr("Block", area, off, "previous tag 0x%X, want 0x%X", h.prevPhys, prev.offset())
			case h.prevFree != prevFree:
				return verr("Block", area, off, "previous-free flag %v, want %v", h.prevFree, prevFree)
			case h.free && prevFree:
				return verr("Block", area, off, "adjacent free blocks not coalesced")
			}
			_, filed := linked[ref]
			switch {
			case h.free && !filed:
				fl, sl := mappingInsert(h.size)
				return verr("Index", area, off, "free block of size %d missing from class (%d,%d)", h.size, fl, sl)
			case !h.free && filed:
				return verr("Index", area, off, "used block still linked")
			}
			if h.free {
				freeBlocks++
				freeBytes += h.size
			} else {
				usedBytes += h.size + headerSize
			}
			prev, prevFree = ref, h.free
			ref = ref.next(h.size)
		}

		if ref.offset() != end {
			return verr("Area", area, ref.offset(), "blocks end at 0x%X, trailing sentinel at 0x%X", ref.offset(), end)
		}
		h := p.areas.header(ref)
		if h.size != 0 || h.free || h.prevPhys != prev.offset() || h.prevFree != prevFree {
			return verr("Area", area, end, "trailing sentinel corrupt")
		}
	}

	if len(linked) != freeBlocks || p.index.count != freeBlocks {
		return indexErr("%d blocks linked, %d counted, %d free in layout", len(linked), p.index.count, freeBlocks)
	}
	if p.index.bytes != freeBytes {
		return indexErr("%d free bytes counted, %d free in layout", p.index.bytes, freeBytes)
	}
	if diagnostics && p.used != usedBytes {
		return &ValidationError{
			Type:    "Accounting",
			Message: fmt.Sprintf("used size %d, layout holds %d", p.used, usedBytes),
			Area:    -1,
			Offset:  -1,
		}
	}
	return nil
}

// verifyIndex checks bitmaps and list structure and returns the set of linked
// blocks.
func (p *Pool) verifyIndex() (map[blockRef]struct{}, error) {
	x := &p.index
	linked := make(map[blockRef]struct{}, x.count)
	for fl := range flCount {
		if (x.flBitmap&(1<<fl) != 0) != (x.slBitmap[fl] != 0) {
			return nil, indexErr("first-level bit %d disagrees with second-level word 0x%08X", fl, x.slBitmap[fl])
		}
		for sl := range sliCount {
			head := x.heads[fl][sl]
			if (x.slBitmap[fl]&(1<<sl) != 0) != (head != nilRef) {
				return nil, indexErr("bit (%d,%d) disagrees with list head", fl, sl)
			}
			prev := nilRef
			for cur := head; cur != nilRef; {
				area := cur.area()
				if area < 0 || area >= len(p.areas.mem) || cur.offset()+headerSize+minBlockSize > uint64(len(p.areas.mem[area])) {
					return nil, indexErr("link 0x%X out of bounds in (%d,%d)", uint64(cur), fl, sl)
				}
				if _, dup := linked[cur]; dup {
					return nil, verr("Index", area, cur.offset(), "block linked twice (cycle) in (%d,%d)", fl, sl)
				}
				linked[cur] = struct{}{}
				h := p.areas.header(cur)
				if !h.free {
					return nil, verr("Index", area, cur.offset(), "used block linked in (%d,%d)", fl, sl)
				}
				if f, s := mappingInsert(h.size); f != fl || s != sl {
					return nil, verr("Index", area, cur.offset(), "size %d filed in (%d,%d), maps to (%d,%d)", h.size, fl, sl, f, s)
				}
				l := p.areas.links(cur)
				if l.prev != prev {
					return nil, verr("Index", area, cur.offset(), "back link broken in (%d,%d)", fl, sl)
				}
				prev, cur = cur, l.next
			}
		}
	}
	return linked, nil
}

func isAligned(n int) bool {
	return n%Alignment == 0
}
