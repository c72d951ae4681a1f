// Package bridge owns the single live game-client connection: admission
// happens upstream in the ws handler, everything after the upgrade runs
// through the bridge loop. One goroutine owns the peer handle, so connection
// replacement, heartbeat, and dispatch never race.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/DoyleJ11/fate-bridge/internal/capture"
	"github.com/DoyleJ11/fate-bridge/internal/state"
	"github.com/DoyleJ11/fate-bridge/internal/types"
	"go.uber.org/zap"
)

// Conn is the slice of the websocket connection the bridge drives. CloseNow
// is a forced teardown: replacement and heartbeat timeout must not wait on a
// close handshake a zombie peer will never answer.
type Conn interface {
	Write(ctx context.Context, data []byte) error
	Close() error
	CloseNow() error
}

const writeTimeout = 3 * time.Second

// DefaultHeartbeat is how often the bridge probes the peer; a probe without
// a pong by the next tick terminates the connection.
const DefaultHeartbeat = 15 * time.Second

type Msg interface{ isBridgeMsg() }

type attachMsg struct {
	conn Conn
	addr string
}

type detachMsg struct {
	conn Conn
}

type inboundMsg struct {
	conn Conn
	data []byte
}

type sendMsg struct {
	data  []byte
	reply chan bool
}

type statusMsg struct {
	reply chan Status
}

type shutdownMsg struct {
	done chan struct{}
}

func (attachMsg) isBridgeMsg()   {}
func (detachMsg) isBridgeMsg()   {}
func (inboundMsg) isBridgeMsg()  {}
func (sendMsg) isBridgeMsg()     {}
func (statusMsg) isBridgeMsg()   {}
func (shutdownMsg) isBridgeMsg() {}

type Status struct {
	Connected bool   `json:"connected"`
	Addr      string `json:"addr,omitempty"`
}

// peer is the one live connection plus heartbeat bookkeeping. Owned by the
// loop goroutine only.
type peer struct {
	conn         Conn
	addr         string
	awaitingPong bool
	lastPong     time.Time
}

type Bridge struct {
	log     *zap.Logger
	store   *state.Store
	capture *capture.Coordinator

	inbox     chan Msg
	heartbeat time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, store *state.Store, media *capture.Coordinator, heartbeat time.Duration, log *zap.Logger) *Bridge {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	ctx, cancel := context.WithCancel(parent)
	b := &Bridge{
		log:       log,
		store:     store,
		capture:   media,
		inbox:     make(chan Msg, 64),
		heartbeat: heartbeat,
		ctx:       ctx,
		cancel:    cancel,
	}
	go b.loop()
	return b
}

// Attach hands a freshly admitted connection to the loop. Any prior peer is
// forcibly terminated first; reconnect-after-reload looks seamless to the
// client.
func (b *Bridge) Attach(conn Conn, addr string) {
	select {
	case b.inbox <- attachMsg{conn: conn, addr: addr}:
	case <-b.ctx.Done():
		_ = conn.CloseNow()
	}
}

// Detach reports that conn's reader exited. Stale conns (already replaced)
// are ignored.
func (b *Bridge) Detach(conn Conn) {
	select {
	case b.inbox <- detachMsg{conn: conn}:
	case <-b.ctx.Done():
	}
}

// Inbound forwards one raw frame from conn's reader.
func (b *Bridge) Inbound(conn Conn, data []byte) {
	select {
	case b.inbox <- inboundMsg{conn: conn, data: data}:
	case <-b.ctx.Done():
	}
}

// Send marshals v and writes it to the live peer. Returns whether delivery
// was attempted; false when no peer is live or the write fails.
func (b *Bridge) Send(v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		b.log.Error("marshal outbound", zap.Error(err))
		return false
	}
	reply := make(chan bool, 1)
	select {
	case b.inbox <- sendMsg{data: data, reply: reply}:
	case <-b.ctx.Done():
		return false
	}
	select {
	case ok := <-reply:
		return ok
	case <-b.ctx.Done():
		return false
	}
}

func (b *Bridge) Status() Status {
	reply := make(chan Status, 1)
	select {
	case b.inbox <- statusMsg{reply: reply}:
	case <-b.ctx.Done():
		return Status{}
	}
	select {
	case s := <-reply:
		return s
	case <-b.ctx.Done():
		return Status{}
	}
}

func (b *Bridge) Connected() bool { return b.Status().Connected }

// Shutdown stops the heartbeat, closes the live peer gracefully, and exits
// the loop.
func (b *Bridge) Shutdown() {
	done := make(chan struct{})
	select {
	case b.inbox <- shutdownMsg{done: done}:
		<-done
	case <-b.ctx.Done():
	}
}

func (b *Bridge) loop() {
	ticker := time.NewTicker(b.heartbeat)
	defer ticker.Stop()

	var current *peer

	for {
		select {
		case <-b.ctx.Done():
			if current != nil {
				_ = current.conn.CloseNow()
			}
			return

		case <-ticker.C:
			current = b.checkHeartbeat(current)

		case m := <-b.inbox:
			switch msg := m.(type) {
			case attachMsg:
				if current != nil {
					// Forced close: a graceful handshake may never complete
					// against a zombie peer.
					b.log.Info("replacing live peer", zap.String("old", current.addr), zap.String("new", msg.addr))
					_ = current.conn.CloseNow()
				}
				current = &peer{conn: msg.conn, addr: msg.addr, lastPong: time.Now()}
				b.log.Info("peer attached", zap.String("addr", msg.addr))
				// Prompt a fresh full snapshot.
				b.write(current, types.NewQueryState())

			case detachMsg:
				if current == nil || current.conn != msg.conn {
					break // stale reader from a replaced peer
				}
				b.log.Info("peer detached", zap.String("addr", current.addr))
				current = nil
				b.store.MarkDisconnected()

			case inboundMsg:
				if current == nil || current.conn != msg.conn {
					break
				}
				b.dispatch(current, msg.data)

			case sendMsg:
				msg.reply <- b.writeRaw(current, msg.data)

			case statusMsg:
				s := Status{}
				if current != nil {
					s.Connected = true
					s.Addr = current.addr
				}
				msg.reply <- s

			case shutdownMsg:
				if current != nil {
					_ = current.conn.Close()
					current = nil
				}
				b.cancel()
				close(msg.done)
				return
			}
		}
	}
}

// checkHeartbeat terminates the peer when the previous probe went
// unanswered, otherwise sends the next probe. One probe outstanding at a
// time.
func (b *Bridge) checkHeartbeat(current *peer) *peer {
	if current == nil {
		return nil
	}
	if current.awaitingPong {
		b.log.Warn("heartbeat timeout, terminating peer",
			zap.String("addr", current.addr), zap.Time("lastPong", current.lastPong))
		_ = current.conn.CloseNow()
		b.store.MarkDisconnected()
		return nil
	}
	current.awaitingPong = true
	b.write(current, types.NewPing())
	return current
}

func (b *Bridge) dispatch(current *peer, data []byte) {
	msg, err := types.DecodeInbound(data)
	if err != nil {
		// Protocol error: log and drop, connection stays open.
		if errors.Is(err, types.ErrUnknownType) {
			b.log.Warn("ignoring unknown message type", zap.Error(err))
		} else {
			b.log.Warn("ignoring malformed frame", zap.Error(err))
		}
		return
	}

	switch m := msg.(type) {
	case types.GameReady:
		b.log.Info("full snapshot received",
			zap.String("world", m.WorldID), zap.Int("actors", len(m.Actors)))
		b.store.ApplyFullSnapshot(m)
	case types.ChatMessage:
		b.store.ApplyChatAppend(m.Message)
	case types.ChatMessageUpdate:
		b.store.ApplyChatUpdate(m.Message)
	case types.ActorUpdate:
		b.store.ApplyActorUpdate(m.ActorID, m.Actor)
	case types.CombatUpdate:
		b.store.ApplyCombatUpdate(m.Combat)
	case types.SceneChange:
		b.store.ApplySceneChange(m.Scene)
	case types.VideoChunk:
		b.capture.HandleFragment(m.Data, m.Timestamp)
	case types.Pong:
		current.awaitingPong = false
		current.lastPong = time.Now()
	}
}

func (b *Bridge) write(current *peer, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		b.log.Error("marshal outbound", zap.Error(err))
		return false
	}
	return b.writeRaw(current, data)
}

func (b *Bridge) writeRaw(current *peer, data []byte) bool {
	if current == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(b.ctx, writeTimeout)
	defer cancel()
	if err := current.conn.Write(ctx, data); err != nil {
		b.log.Warn("write to peer failed", zap.String("addr", current.addr), zap.Error(err))
		return false
	}
	return true
}
