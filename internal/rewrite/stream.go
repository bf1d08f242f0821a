package rewrite

import (
	"bytes"
	"errors"
	"io"
)

var errSplicerClosed = errors.New("rewrite: write to closed splicer")

// Insert describes one streaming splice: Fragment + "\n" goes before the first Anchor.
type Insert struct {
	Anchor   string
	Fragment string
	// SkipIfPresent drops the fragment when this substring was seen by the time
	// the anchor arrives.
	SkipIfPresent string
}

// PixelInsert is the streaming form of InjectPixel.
func PixelInsert(p Pixel) Insert {
	return Insert{Anchor: bodyClose, Fragment: p.Tag(), SkipIfPresent: p.Marker}
}

// SchemaLoaderInsert is the streaming form of InjectSchemaLoader.
func SchemaLoaderInsert(schemaURL string) Insert {
	return Insert{Anchor: headClose, Fragment: SchemaLoaderScript(schemaURL)}
}

type insertState struct {
	Insert
	done    bool
	seen    bool
	applied bool
}

// Splicer applies inserts to a document written to it in arbitrary chunks.
// It holds back just enough bytes to recognise anchors and markers that
// straddle chunk boundaries; everything else is forwarded immediately.
// Close must be called to flush the tail.
type Splicer struct {
	dst     io.Writer
	inserts []*insertState
	pending []byte
	err     error
	closed  bool
}

// NewSplicer returns a Splicer writing to dst.
func NewSplicer(dst io.Writer, inserts ...Insert) *Splicer {
	s := &Splicer{dst: dst}
	for _, ins := range inserts {
		s.inserts = append(s.inserts, &insertState{Insert: ins})
	}
	return s
}

// Write buffers p and forwards everything that can no longer be part of an anchor.
func (s *Splicer) Write(p []byte) (int, error) {
	if s.closed {
		return 0, errSplicerClosed
	}
	if s.err != nil {
		return 0, s.err
	}
	s.pending = append(s.pending, p...)
	if err := s.drain(false); err != nil {
		s.err = err
		return 0, err
	}
	return len(p), nil
}

// Close flushes the remaining bytes. Inserts whose anchor never arrived are dropped.
func (s *Splicer) Close() error {
	if s.closed {
		return s.err
	}
	s.closed = true
	if s.err != nil {
		return s.err
	}
	s.err = s.drain(true)
	return s.err
}

// Applied reports whether the i-th insert's fragment was written.
func (s *Splicer) Applied(i int) bool {
	return i >= 0 && i < len(s.inserts) && s.inserts[i].applied
}

func (s *Splicer) drain(final bool) error {
	for {
		s.markSeen()
		ins, idx := s.nextAnchor()
		if ins == nil {
			break
		}
		if err := s.emit(s.pending[:idx]); err != nil {
			return err
		}
		if ins.SkipIfPresent == "" || !ins.seen {
			if err := s.emit([]byte(ins.Fragment + "\n")); err != nil {
				return err
			}
			ins.applied = true
		}
		ins.done = true
		s.pending = s.pending[idx:]
	}

	keep := 0
	if !final {
		keep = s.holdback()
	}
	if n := len(s.pending) - keep; n > 0 {
		if err := s.emit(s.pending[:n]); err != nil {
			return err
		}
		s.pending = append(s.pending[:0], s.pending[n:]...)
	}
	return nil
}

func (s *Splicer) markSeen() {
	for _, ins := range s.inserts {
		if !ins.done && !ins.seen && ins.SkipIfPresent != "" &&
			bytes.Contains(s.pending, []byte(ins.SkipIfPresent)) {
			ins.seen = true
		}
	}
}

// nextAnchor returns the pending insert whose anchor occurs first.
func (s *Splicer) nextAnchor() (*insertState, int) {
	var best *insertState
	bestIdx := -1
	for _, ins := range s.inserts {
		if ins.done {
			continue
		}
		idx := bytes.Index(s.pending, []byte(ins.Anchor))
		if idx >= 0 && (bestIdx < 0 || idx < bestIdx) {
			best, bestIdx = ins, idx
		}
	}
	return best, bestIdx
}

// holdback is the longest partial anchor or marker that may still complete.
func (s *Splicer) holdback() int {
	n := 0
	for _, ins := range s.inserts {
		if ins.done {
			continue
		}
		n = max(n, len(ins.Anchor)-1)
		if !ins.seen {
			n = max(n, len(ins.SkipIfPresent)-1)
		}
	}
	return n
}

func (s *Splicer) emit(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	_, err := s.dst.Write(b)
	return err
}
