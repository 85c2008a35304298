// Package archivev1ring implements the asynchronous v1 unpacker: batched
// io_uring submission replaces the synchronous decoder's one-open-one-write
// loop with linked open+write pairs against a fixed, registered file table.
//
// Directories stay synchronous (mkdir_at/open_path_at/push/pop): a
// subsequent open within the same batch needs its parent's descriptor
// before it can be queued, so there is nothing to gain from async there.
package archivev1ring

import (
	"encoding/binary"
	"fmt"

	"github.com/pawelgaczynski/giouring"
	"golang.org/x/sys/unix"

	"github.com/rclone/archiver/internal/archivev1"
	"github.com/rclone/archiver/internal/errs"
	"github.com/rclone/archiver/internal/fsops"
	"github.com/rclone/archiver/internal/logx"
	"github.com/rclone/archiver/internal/sandbox"
)

// DefaultBatchSize is B in the spec: the number of FILE entries drained
// together, and the size of the registered fixed-file table.
const DefaultBatchSize = 256

// numStates mirrors the Rust original's NUM_STATES: user_data encodes
// both the batch slot and which half (open vs write) of the pair a
// completion belongs to.
const numStates = 2

// parentRef is a reference-counted directory handle. Multiple pending
// batch entries can name the same parent; the descriptor closes only
// once every referencing entry has retired and the parent stack no
// longer needs it.
type parentRef struct {
	dir      *fsops.Dir
	refCount int
}

func (p *parentRef) acquire() *parentRef {
	p.refCount++
	return p
}

func (p *parentRef) release() error {
	p.refCount--
	if p.refCount == 0 {
		return p.dir.Close()
	}
	return nil
}

// entry is one pending FILE within a batch: the slice narrows as
// writes complete, exactly mirroring the Rust original's Entry.
type entry struct {
	parent *parentRef
	name   string
	data   []byte
}

// Unpacker drives the batched drain loop over a memory-mapped v1
// archive.
type Unpacker struct {
	ring      *giouring.Ring
	batchSize uint32
	batch     []entry
}

// New creates a submission ring sized for 2*batchSize entries and
// registers a sparse fixed-file table of size batchSize.
func New(batchSize uint32) (*Unpacker, error) {
	if batchSize == 0 {
		batchSize = DefaultBatchSize
	}
	ring, err := giouring.CreateRing(2 * batchSize)
	if err != nil {
		return nil, fmt.Errorf("create ring: %w", err)
	}
	if err := ring.RegisterFilesSparse(batchSize); err != nil {
		ring.QueueExit()
		return nil, fmt.Errorf("register_files_sparse: %w", err)
	}
	return &Unpacker{
		ring:      ring,
		batchSize: batchSize,
		batch:     make([]entry, 0, batchSize),
	}, nil
}

// Close tears down the ring. Safe to call once.
func (u *Unpacker) Close() {
	u.ring.QueueExit()
}

// Unpack decodes mapped into outDir.
func (u *Unpacker) Unpack(mapped []byte, outDir string) error {
	if err := sandbox.Enter(outDir); err != nil {
		return err
	}

	rootDir, err := fsops.OpenPathAtCwd(".")
	if err != nil {
		return err
	}
	root := &parentRef{dir: rootDir, refCount: 1}

	stack := make([]*parentRef, 0, archivev1.MaxDepth)
	stack = append(stack, root)
	defer func() {
		for _, p := range stack {
			_ = p.release()
		}
	}()

	pos := 0
	for pos < len(mapped) {
		if len(stack) > archivev1.MaxDepth {
			return errs.Of(errs.ErrDepthExceeded, fmt.Errorf("depth %d exceeds max %d", len(stack), archivev1.MaxDepth))
		}
		tag := archivev1.Tag(mapped[pos])
		pos++
		parent := stack[len(stack)-1]

		switch tag {
		case archivev1.TagFile:
			name, n, err := readCString(mapped, pos)
			if err != nil {
				return err
			}
			pos = n
			if pos+4 > len(mapped) {
				return errs.Of(errs.ErrTruncated, fmt.Errorf("truncated length field for %s", name))
			}
			length := binary.LittleEndian.Uint32(mapped[pos : pos+4])
			pos += 4
			if pos+int(length) > len(mapped) {
				return errs.Of(errs.ErrTruncated, fmt.Errorf("file %s data truncated", name))
			}

			u.batch = append(u.batch, entry{
				parent: parent.acquire(),
				name:   name,
				data:   mapped[pos : pos+int(length)],
			})
			pos += int(length)

			if len(u.batch) == int(u.batchSize) {
				if err := u.drain(); err != nil {
					return err
				}
			}

		case archivev1.TagDir:
			name, n, err := readCString(mapped, pos)
			if err != nil {
				return err
			}
			pos = n

			if err := fsops.MkdirAt(parent.dir, name); err != nil {
				return err
			}

			if pos < len(mapped) && archivev1.Tag(mapped[pos]) == archivev1.TagPop {
				pos++
				continue
			}

			childDir, err := fsops.OpenPathAt(parent.dir, name)
			if err != nil {
				return err
			}
			stack = append(stack, &parentRef{dir: childDir, refCount: 1})

		case archivev1.TagPop:
			if len(stack) <= 1 {
				return errs.Of(errs.ErrPopEmpty, fmt.Errorf("pop at top level"))
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if err := top.release(); err != nil {
				logx.Debugf("close on pop: %v", err)
			}

		default:
			return errs.Of(errs.ErrBadTag, fmt.Errorf("tag %d at offset %d", tag, pos-1))
		}
	}

	return u.drain()
}

// drain runs every pending entry to completion: push linked open+write
// pairs for the whole batch, submit, then loop on completions,
// resubmitting short writes on their same fixed slot until nothing is
// outstanding.
func (u *Unpacker) drain() error {
	if len(u.batch) == 0 {
		return nil
	}
	defer func() {
		for _, e := range u.batch {
			_ = e.parent.release()
		}
		u.batch = u.batch[:0]
	}()

	for i, e := range u.batch {
		slot := uint32(i)

		openSQE := u.ring.GetSQE()
		if openSQE == nil {
			return errs.Of(errs.ErrQueueFull, fmt.Errorf("submission queue full queuing open for %s", e.name))
		}
		openSQE.PrepOpenatDirect(
			uint32(e.parent.dir.FD()),
			e.name,
			unix.O_WRONLY|unix.O_CREAT,
			0o755,
			slot,
		)
		openSQE.Flags |= giouring.SqeIOLinkFlag
		openSQE.UserData = numStates * uint64(i)

		writeSQE := u.ring.GetSQE()
		if writeSQE == nil {
			return errs.Of(errs.ErrQueueFull, fmt.Errorf("submission queue full queuing write for %s", e.name))
		}
		writeSQE.PrepWrite(int(slot), e.data, uint32(len(e.data)), ^uint64(0))
		writeSQE.Flags |= giouring.SqeFixedFileFlag
		writeSQE.UserData = numStates*uint64(i) + 1
	}

	if _, err := u.ring.SubmitAndWait(uint32(2 * len(u.batch))); err != nil {
		return fmt.Errorf("submit_and_wait: %w", err)
	}

	remaining := len(u.batch)
	cqes := make([]*giouring.CompletionQueueEvent, 2*len(u.batch))
	for remaining > 0 {
		n := u.ring.PeekBatchCQE(cqes)
		var resubmitted int
		for i := 0; i < n; i++ {
			cqe := cqes[i]
			idx := cqe.UserData / numStates
			e := &u.batch[idx]

			switch cqe.UserData % numStates {
			case 0: // open
				if cqe.Res < 0 {
					u.ring.CQAdvance(uint32(n))
					return errs.Of(errs.ErrOpen, fmt.Errorf("async openat %s: errno %d", e.name, -cqe.Res))
				}
			case 1: // write
				if cqe.Res < 0 {
					u.ring.CQAdvance(uint32(n))
					return errs.Of(errs.ErrWrite, fmt.Errorf("async write %s: errno %d", e.name, -cqe.Res))
				}
				written := int(cqe.Res)
				if written == len(e.data) {
					remaining--
				} else {
					e.data = e.data[written:]
					sqe := u.ring.GetSQE()
					if sqe == nil {
						u.ring.CQAdvance(uint32(n))
						return errs.Of(errs.ErrQueueFull, fmt.Errorf("resubmitting write for %s", e.name))
					}
					sqe.PrepWrite(int(idx), e.data, uint32(len(e.data)), ^uint64(0))
					sqe.Flags |= giouring.SqeFixedFileFlag
					sqe.UserData = numStates*idx + 1
					resubmitted++
				}
			}
		}
		u.ring.CQAdvance(uint32(n))

		if resubmitted > 0 {
			if _, err := u.ring.SubmitAndWait(uint32(resubmitted)); err != nil {
				return fmt.Errorf("submit_and_wait (resubmit): %w", err)
			}
		} else if remaining == 0 {
			break
		}
	}
	return nil
}

func readCString(b []byte, start int) (name string, next int, err error) {
	for i := start; i < len(b); i++ {
		if b[i] == 0 {
			return string(b[start:i]), i + 1, nil
		}
	}
	return "", 0, errs.Of(errs.ErrTruncated, fmt.Errorf("unterminated name starting at %d", start))
}
