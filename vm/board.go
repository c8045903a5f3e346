package vm

import (
	"strings"

	"github.com/chazu/boardsim/vm/wire"
)

// Board is the peripheral host the runtime drives. UpdateView is called
// whenever display state was marked dirty; ReceiveMessage gets every
// message the host sends to the simulator.
type Board interface {
	UpdateView()
	ReceiveMessage(m wire.Message)
}

// serialBufferLength is how many bytes of serial output are buffered
// before a flush that is not triggered by a newline.
const serialBufferLength = 16

// BaseBoard is a minimal Board: it fans host messages out to listeners and
// buffers serial output into serial messages.
type BaseBoard struct {
	rt        *Runtime
	listeners []func(wire.Message)
	serialOut strings.Builder
	updates   int

	// OnUpdate, if set, is called from UpdateView.
	OnUpdate func()
}

// NewBaseBoard creates a board posting through rt. Install it with
// rt.SetBoard.
func NewBaseBoard(rt *Runtime) *BaseBoard {
	return &BaseBoard{rt: rt}
}

// UpdateView implements Board.
func (b *BaseBoard) UpdateView() {
	b.updates++
	if b.OnUpdate != nil {
		b.OnUpdate()
	}
}

// Updates returns how many times the view was refreshed.
func (b *BaseBoard) Updates() int { return b.updates }

// ReceiveMessage implements Board.
func (b *BaseBoard) ReceiveMessage(m wire.Message) {
	for _, l := range b.listeners {
		l(m)
	}
}

// AddMessageListener registers l for every message the board receives.
func (b *BaseBoard) AddMessageListener(l func(wire.Message)) {
	b.listeners = append(b.listeners, l)
}

// WriteSerial buffers s and posts the buffer as a serial message once it
// holds a newline or more than serialBufferLength bytes.
func (b *BaseBoard) WriteSerial(s string) {
	b.serialOut.WriteString(s)
	buf := b.serialOut.String()
	if !strings.Contains(buf, "\n") && len(buf) <= serialBufferLength {
		return
	}
	b.serialOut.Reset()
	b.rt.PostMessage(&wire.SerialMessage{
		ID:   b.rt.ID(),
		Data: buf,
		Time: b.rt.opts.Now().UnixMilli(),
	})
}
