package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/app/orch"
	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

const (
	defaultSendBuffer = 32
	defaultReadLimit  = 32768
	defaultPingPeriod = 54 * time.Second
	inboxSize         = 64
	writeWait         = 5 * time.Second
)

type Options struct {
	SendBuffer        int
	ReadLimit         int64
	PingPeriod        time.Duration
	StateRateLimit    int
	StateRateInterval time.Duration
	// Secret verifies login tokens. Without it logins are taken at face value.
	Secret string
}

type SignalWSController struct {
	Orch *orch.Orchestrator

	opts     Options
	limiter  *RoomRateLimiter
	verifier *TokenVerifier
}

func NewSignalWSController(o *orch.Orchestrator, opts Options) *SignalWSController {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = defaultReadLimit
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = defaultPingPeriod
	}
	if opts.StateRateLimit <= 0 {
		opts.StateRateLimit = 10
	}
	if opts.StateRateInterval <= 0 {
		opts.StateRateInterval = time.Second
	}
	ctl := &SignalWSController{
		Orch:    o,
		opts:    opts,
		limiter: NewRoomRateLimiter(opts.StateRateLimit, opts.StateRateInterval),
	}
	if opts.Secret != "" {
		ctl.verifier = NewTokenVerifier(opts.Secret)
	}
	return ctl
}

// WsSignalConn is the websocket side of one connection. It can also be asked
// for the content of the seat its client is editing.
type WsSignalConn struct {
	conn  *websocket.Conn
	send  chan core.Frame
	inbox chan []byte
	done  chan struct{}

	mu     sync.RWMutex
	closed bool

	pendingMu sync.Mutex
	pending   map[string]chan domain.RoleContent
}

func newWsSignalConn(conn *websocket.Conn, sendBuffer int) *WsSignalConn {
	return &WsSignalConn{
		conn:    conn,
		send:    make(chan core.Frame, sendBuffer),
		inbox:   make(chan []byte, inboxSize),
		done:    make(chan struct{}),
		pending: make(map[string]chan domain.RoleContent),
	}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	close(c.done)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// FetchContent asks the client to export the seat it is editing and waits
// for the matching role-content reply.
func (c *WsSignalConn) FetchContent(ctx context.Context) (domain.RoleContent, error) {
	id := uuid.NewString()
	ch := make(chan domain.RoleContent, 1)

	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	frame, err := encode(exportRequest{Type: MsgExportRole, ID: id})
	if err != nil {
		return domain.RoleContent{}, err
	}
	if err := c.TrySend(frame); err != nil {
		return domain.RoleContent{}, err
	}

	select {
	case content := <-ch:
		return content, nil
	case <-c.done:
		return domain.RoleContent{}, ErrClosed
	case <-ctx.Done():
		return domain.RoleContent{}, ctx.Err()
	}
}

// resolve hands a reply to the FetchContent call waiting for it.
func (c *WsSignalConn) resolve(id string, content domain.RoleContent) bool {
	c.pendingMu.Lock()
	ch, ok := c.pending[id]
	c.pendingMu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- content:
	default:
	}
	return true
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	token := c.GetString("client_token")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	sc := newWsSignalConn(ws, ctl.opts.SendBuffer)
	conn := core.NewConnection(domain.NewConnID(), token, sc)
	log.Info().Str("module", "signal").Str("conn", string(conn.ID())).Msg("new WS connection")

	ctl.Orch.OnConnect(conn)
	go ctl.serve(ctx, conn, sc)
}
