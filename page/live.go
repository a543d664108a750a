package page

import (
	"bytes"
	"sync"
	"sync/atomic"
)

// Live owns the served document. Mutations run one at a time and readers
// only ever see a complete render.
type Live struct {
	mu  sync.Mutex
	doc *Document

	rendered atomic.Pointer[[]byte]
	renders  atomic.Uint64
}

// NewLive takes ownership of doc and renders it once.
func NewLive(doc *Document) (*Live, error) {
	l := &Live{doc: doc}
	if err := l.Update(func(*Document) {}); err != nil {
		return nil, err
	}
	return l, nil
}

// Update applies fn to the document and publishes the new render. If
// rendering fails the previous render is kept.
func (l *Live) Update(fn func(*Document)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	fn(l.doc)

	var buf bytes.Buffer
	if err := l.doc.Render(&buf); err != nil {
		return err
	}
	b := buf.Bytes()
	l.rendered.Store(&b)
	l.renders.Add(1)
	return nil
}

// Bytes returns the last published render.
func (l *Live) Bytes() []byte {
	if b := l.rendered.Load(); b != nil {
		return *b
	}
	return nil
}

// Renders returns how many renders have been published.
func (l *Live) Renders() uint64 {
	return l.renders.Load()
}
