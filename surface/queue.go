// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package surface

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/luxfi/mediaplayer"
)

const (
	MaxBufferSlots     = 32
	MinBufferCount     = 2
	DefaultBufferCount = 3

	// minUndequeued slots always stay with the consumer side.
	minUndequeued = 1
)

// Producer APIs accepted by Connect.
const (
	APINone = iota
	APIEGL
	APICPU
	APIMedia
	APICamera
	APIMediaHW
	APICameraHW
)

// Pixel formats.
const (
	FormatRGBA8888 uint32 = 1
	FormatRGBX8888 uint32 = 2
	FormatRGB888   uint32 = 3
	FormatRGB565   uint32 = 4
	FormatNV21     uint32 = 0x11
	FormatYV12     uint32 = 0x32315659
)

// Query keys.
const (
	QueryWidth                 = 0
	QueryHeight                = 1
	QueryFormat                = 2
	QueryMinUndequeuedBuffers  = 3
	QueryDefaultWidth          = 6
	QueryDefaultHeight         = 7
	QueryTransformHint         = 8
	QueryConsumerRunningBehind = 9
	QueryBufferCount           = 10
)

// FrameSize returns the byte size of a w×h frame in format.
func FrameSize(w, h, format uint32) int {
	n := int(w) * int(h)
	switch format {
	case FormatRGB888:
		return n * 3
	case FormatRGB565:
		return n * 2
	case FormatNV21, FormatYV12:
		return n * 3 / 2
	default:
		return n * 4
	}
}

type bufferState int

const (
	stateFree bufferState = iota
	stateDequeued
	stateQueued
	stateAcquired
)

func (s bufferState) String() string {
	switch s {
	case stateFree:
		return "free"
	case stateDequeued:
		return "dequeued"
	case stateQueued:
		return "queued"
	case stateAcquired:
		return "acquired"
	}
	return fmt.Sprintf("bufferState(%d)", int(s))
}

// Buffer is a frame held in one slot of a BufferQueue. The producer fills
// Data between DequeueBuffer and QueueBuffer; the consumer reads it between
// AcquireBuffer and ReleaseBuffer.
type Buffer struct {
	Slot        int
	Width       uint32
	Height      uint32
	Format      uint32
	Usage       uint32
	Timestamp   int64
	Transform   uint32
	FrameNumber uint64
	Data        []byte
}

type slot struct {
	state bufferState
	buf   *Buffer
}

// QueueOutput is what the producer learns back from Connect and QueueBuffer.
type QueueOutput struct {
	Width          uint32
	Height         uint32
	TransformHint  uint32
	PendingBuffers int
}

// BufferQueue hands a fixed set of buffer slots between one producer and one
// consumer. In synchronous mode every queued frame reaches the consumer; in
// asynchronous mode a newly queued frame replaces the one still pending.
type BufferQueue struct {
	mu      sync.Mutex
	changed chan struct{}

	slots []slot
	queue []int

	defaultWidth  uint32
	defaultHeight uint32
	defaultFormat uint32
	transformHint uint32

	api         int
	synchronous bool
	abandoned   bool
	frameNumber uint64
}

func NewBufferQueue() *BufferQueue {
	return &BufferQueue{
		changed:       make(chan struct{}),
		slots:         make([]slot, DefaultBufferCount),
		defaultWidth:  1,
		defaultHeight: 1,
		defaultFormat: FormatRGBA8888,
		synchronous:   true,
	}
}

// broadcast wakes every waiter. Callers hold mu.
func (q *BufferQueue) broadcast() {
	close(q.changed)
	q.changed = make(chan struct{})
}

func (q *BufferQueue) output() QueueOutput {
	return QueueOutput{
		Width:          q.defaultWidth,
		Height:         q.defaultHeight,
		TransformHint:  q.transformHint,
		PendingBuffers: len(q.queue),
	}
}

func (q *BufferQueue) slotIn(i int, want bufferState) (*slot, error) {
	if i < 0 || i >= len(q.slots) {
		return nil, fmt.Errorf("%w: slot %d out of range", mediaplayer.BadValue, i)
	}
	s := &q.slots[i]
	if s.state != want {
		return nil, fmt.Errorf("%w: slot %d is %v, not %v", mediaplayer.BadValue, i, s.state, want)
	}
	return s, nil
}

// SetDefaultBufferSize sets the size used when a producer dequeues with a
// zero width and height.
func (q *BufferQueue) SetDefaultBufferSize(w, h uint32) error {
	if w == 0 || h == 0 {
		return fmt.Errorf("%w: default size %dx%d", mediaplayer.BadValue, w, h)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.defaultWidth, q.defaultHeight = w, h
	return nil
}

// SetTransformHint sets the hint reported to producers.
func (q *BufferQueue) SetTransformHint(hint uint32) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.transformHint = hint
}

// SetBufferCount resizes the slot set. Zero restores the default. Every
// buffer is dropped, so no slot may be in use.
func (q *BufferQueue) SetBufferCount(n int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.abandoned {
		return mediaplayer.NoInit
	}
	if n == 0 {
		n = DefaultBufferCount
	}
	if n < MinBufferCount || n > MaxBufferSlots {
		return fmt.Errorf("%w: buffer count %d", mediaplayer.BadValue, n)
	}
	for i, s := range q.slots {
		if s.state == stateDequeued || s.state == stateAcquired {
			return fmt.Errorf("%w: slot %d is %v", mediaplayer.InvalidOperation, i, s.state)
		}
	}
	q.slots = make([]slot, n)
	q.queue = nil
	q.broadcast()
	return nil
}

// SetSynchronousMode switches between synchronous and asynchronous mode.
// Leaving synchronous mode keeps only the newest pending frame.
func (q *BufferQueue) SetSynchronousMode(enabled bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.abandoned {
		return mediaplayer.NoInit
	}
	q.synchronous = enabled
	if !enabled && len(q.queue) > 1 {
		last := len(q.queue) - 1
		for _, i := range q.queue[:last] {
			q.slots[i].state = stateFree
		}
		q.queue = []int{q.queue[last]}
	}
	q.broadcast()
	return nil
}

// Connect attaches a producer using api.
func (q *BufferQueue) Connect(api int) (QueueOutput, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.abandoned {
		return QueueOutput{}, mediaplayer.NoInit
	}
	if api <= APINone || api > APICameraHW {
		return QueueOutput{}, fmt.Errorf("%w: api %d", mediaplayer.BadValue, api)
	}
	if q.api != APINone {
		return QueueOutput{}, fmt.Errorf("%w: already connected with api %d", mediaplayer.BadValue, q.api)
	}
	q.api = api
	return q.output(), nil
}

// Disconnect detaches the producer. Pending frames and the producer's
// buffers are dropped; acquired buffers stay with the consumer.
func (q *BufferQueue) Disconnect(api int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.abandoned {
		return mediaplayer.NoInit
	}
	if api != q.api || api == APINone {
		return fmt.Errorf("%w: api %d is not connected", mediaplayer.BadValue, api)
	}
	q.api = APINone
	for i := range q.slots {
		if q.slots[i].state != stateAcquired {
			q.slots[i] = slot{}
		}
	}
	q.queue = nil
	q.broadcast()
	return nil
}

// DequeueBuffer hands the producer a free slot, waiting for one if every
// slot is busy. A zero width and height select the default size; a zero
// format selects the default format. The slot's buffer is reallocated
// when its geometry or usage no longer fits.
func (q *BufferQueue) DequeueBuffer(ctx context.Context, w, h, format, usage uint32) (int, error) {
	if (w == 0) != (h == 0) {
		return -1, fmt.Errorf("%w: size %dx%d", mediaplayer.BadValue, w, h)
	}
	for {
		q.mu.Lock()
		if q.abandoned || q.api == APINone {
			q.mu.Unlock()
			return -1, mediaplayer.NoInit
		}

		dequeued, free := 0, -1
		for i, s := range q.slots {
			switch {
			case s.state == stateDequeued:
				dequeued++
			case s.state == stateFree && free < 0:
				free = i
			}
		}
		if dequeued >= len(q.slots)-minUndequeued {
			q.mu.Unlock()
			return -1, fmt.Errorf("%w: %d buffers already dequeued", mediaplayer.InvalidOperation, dequeued)
		}
		if free >= 0 {
			q.allocate(free, w, h, format, usage)
			q.mu.Unlock()
			return free, nil
		}

		wait := q.changed
		q.mu.Unlock()
		select {
		case <-ctx.Done():
			return -1, ctx.Err()
		case <-wait:
		}
	}
}

// allocate marks slot i dequeued and makes sure its buffer fits. Callers
// hold mu.
func (q *BufferQueue) allocate(i int, w, h, format, usage uint32) {
	if w == 0 {
		w, h = q.defaultWidth, q.defaultHeight
	}
	if format == 0 {
		format = q.defaultFormat
	}
	s := &q.slots[i]
	s.state = stateDequeued
	if b := s.buf; b != nil && b.Width == w && b.Height == h && b.Format == format && b.Usage&usage == usage {
		return
	}
	s.buf = &Buffer{
		Slot:   i,
		Width:  w,
		Height: h,
		Format: format,
		Usage:  usage,
		Data:   make([]byte, FrameSize(w, h, format)),
	}
}

// RequestBuffer returns the buffer behind a dequeued slot for filling.
func (q *BufferQueue) RequestBuffer(i int) (*Buffer, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	s, err := q.slotIn(i, stateDequeued)
	if err != nil {
		return nil, err
	}
	return s.buf, nil
}

// QueueBuffer passes a filled slot to the consumer.
func (q *BufferQueue) QueueBuffer(i int, timestamp int64) (QueueOutput, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.abandoned {
		return QueueOutput{}, mediaplayer.NoInit
	}
	s, err := q.slotIn(i, stateDequeued)
	if err != nil {
		return QueueOutput{}, err
	}
	q.frameNumber++
	s.buf.Timestamp = timestamp
	s.buf.FrameNumber = q.frameNumber
	s.buf.Transform = q.transformHint
	s.state = stateQueued

	if !q.synchronous && len(q.queue) > 0 {
		last := len(q.queue) - 1
		q.slots[q.queue[last]].state = stateFree
		q.queue[last] = i
	} else {
		q.queue = append(q.queue, i)
	}
	q.broadcast()
	return q.output(), nil
}

// CancelBuffer returns a dequeued slot without queueing it.
func (q *BufferQueue) CancelBuffer(i int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	s, err := q.slotIn(i, stateDequeued)
	if err != nil {
		return err
	}
	s.state = stateFree
	q.broadcast()
	return nil
}

// Query answers one of the Query keys.
func (q *BufferQueue) Query(what int) (int32, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.abandoned {
		return 0, mediaplayer.NoInit
	}
	switch what {
	case QueryWidth, QueryDefaultWidth:
		return int32(q.defaultWidth), nil
	case QueryHeight, QueryDefaultHeight:
		return int32(q.defaultHeight), nil
	case QueryFormat:
		return int32(q.defaultFormat), nil
	case QueryMinUndequeuedBuffers:
		return minUndequeued, nil
	case QueryTransformHint:
		return int32(q.transformHint), nil
	case QueryConsumerRunningBehind:
		if len(q.queue) >= 2 {
			return 1, nil
		}
		return 0, nil
	case QueryBufferCount:
		return int32(len(q.slots)), nil
	}
	return 0, fmt.Errorf("%w: query %d", mediaplayer.BadValue, what)
}

// AcquireBuffer takes the oldest pending frame. An empty queue is
// WouldBlock.
func (q *BufferQueue) AcquireBuffer() (Buffer, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.acquire()
}

func (q *BufferQueue) acquire() (Buffer, error) {
	if q.abandoned {
		return Buffer{}, mediaplayer.NoInit
	}
	if len(q.queue) == 0 {
		return Buffer{}, mediaplayer.WouldBlock
	}
	i := q.queue[0]
	q.queue = q.queue[1:]
	s := &q.slots[i]
	s.state = stateAcquired
	return *s.buf, nil
}

// NextBuffer waits for a frame and acquires it.
func (q *BufferQueue) NextBuffer(ctx context.Context) (Buffer, error) {
	for {
		q.mu.Lock()
		b, err := q.acquire()
		if !errors.Is(err, mediaplayer.WouldBlock) {
			q.mu.Unlock()
			return b, err
		}
		wait := q.changed
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Buffer{}, ctx.Err()
		case <-wait:
		}
	}
}

// ReleaseBuffer hands an acquired slot back to the producer side.
func (q *BufferQueue) ReleaseBuffer(i int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	s, err := q.slotIn(i, stateAcquired)
	if err != nil {
		return err
	}
	s.state = stateFree
	q.broadcast()
	return nil
}

// Pending returns the number of queued frames not yet acquired.
func (q *BufferQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// Abandon fails every later call with NoInit and wakes all waiters.
func (q *BufferQueue) Abandon() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.abandoned = true
	q.broadcast()
}
