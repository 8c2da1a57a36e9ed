/*
Package exchange records the messages of one conversation between two agents.

An Exchange starts from an out-of-band invitation and collects every message
sent or received after it. Protocol handlers use it to find the connection of
the conversation and to wait the replies of the other end. All the state of
the Exchange is owned by its own goroutine, which runs the mutations one by
one.
*/
package exchange

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/findy-network/findy-didcomm/agent/pairwise"
	"github.com/findy-network/findy-didcomm/agent/pltype"
	"github.com/findy-network/findy-didcomm/agent/utils"
	"github.com/findy-network/findy-didcomm/std/oob"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

var (
	ErrNoType          = errors.New("no message type")
	ErrUnexpectedType  = errors.New("unexpected message type")
	ErrInvitationAdded = errors.New("invitation already added")
	ErrNoMessages      = errors.New("no messages")
	ErrNoConnection    = errors.New("no connection")
	ErrConnectionSet   = errors.New("connection already set")
	ErrClosed          = errors.New("exchange closed")
	ErrNilMessage      = errors.New("nil message")
)

// forConnMu serializes the find-or-register of ForConnection.
var forConnMu sync.Mutex

type Exchange struct {
	id       string
	registry Registry

	ops       chan func()
	quit      chan struct{}
	closeOnce sync.Once

	// owned by the run goroutine
	messages    []*didcomm.EndpointMessage
	attachments map[string]any
	futures     map[string]future
	conn        *pairwise.Connection
	invitation  *oob.Invitation
	resumed     bool
}

// New returns an empty exchange. It's registered to the reg when the
// invitation is added. Close must be called for exchanges which never got
// registered.
func New(reg Registry) *Exchange {
	ex := &Exchange{
		id:          utils.UUID(),
		registry:    reg,
		ops:         make(chan func()),
		quit:        make(chan struct{}),
		attachments: make(map[string]any),
		futures:     make(map[string]future),
	}
	go ex.run()
	return ex
}

// ForConnection returns the registered exchange of the connection or
// registers a new one for it. The invitation of the new exchange has been
// handled earlier, e.g. before the agent was restarted, and that's why it
// takes any other message as a first one.
func ForConnection(reg Registry, conn *pairwise.Connection) (ex *Exchange, err error) {
	defer err2.Handle(&err, "exchange for connection %s", conn.ID())

	forConnMu.Lock()
	defer forConnMu.Unlock()

	if ex, ok := reg.FindByConnectionID(conn.ID()); ok {
		return ex, nil
	}
	ex = New(reg)
	try.To(ex.do(func() {
		ex.conn = conn
		ex.resumed = true
	}))
	if err := reg.Register(ex); err != nil {
		ex.Close()
		return nil, err
	}
	glog.V(1).Infoln("resumed exchange", ex.id, "for", conn.ShortString())
	return ex, nil
}

func (ex *Exchange) run() {
	for {
		select {
		case op := <-ex.ops:
			op()
		case <-ex.quit:
			return
		}
	}
}

// do runs the op in the exchange's goroutine and waits it to finish. Ops
// must not call do themselves.
func (ex *Exchange) do(op func()) error {
	done := make(chan struct{})
	select {
	case ex.ops <- func() {
		defer close(done)
		op()
	}:
	case <-ex.quit:
		return ErrClosed
	}
	<-done
	return nil
}

func (ex *Exchange) ID() string { return ex.id }

// Close stops the exchange. Pending AwaitMessage calls return ErrClosed.
func (ex *Exchange) Close() {
	ex.closeOnce.Do(func() {
		glog.V(3).Infoln("close exchange", ex.id)
		close(ex.quit)
	})
}

func (ex *Exchange) Closed() bool {
	select {
	case <-ex.quit:
		return true
	default:
		return false
	}
}

// AddMessage appends the message to the exchange. The first message must
// be an out-of-band invitation, which is attached to the exchange, and the
// exchange is registered. Later invitations are rejected.
func (ex *Exchange) AddMessage(msg *didcomm.EndpointMessage) (err error) {
	if msg == nil {
		return ErrNilMessage
	}
	defer err2.Handle(&err, "add message %s", msg.ID())

	msgType := msg.Type()
	if msgType == "" {
		return ErrNoType
	}
	var inv *oob.Invitation
	if pltype.IsInvitation(msgType) {
		inv = try.To1(invitationOf(msg))
	}

	try.To(ex.do(func() {
		switch {
		case len(ex.messages) == 0 && !ex.resumed && inv == nil:
			err = fmt.Errorf("%w: %s", ErrUnexpectedType, msgType)
		case inv != nil && (len(ex.messages) > 0 || ex.resumed):
			err = ErrInvitationAdded
		default:
			if inv != nil {
				ex.invitation = inv
			}
			ex.messages = append(ex.messages, msg)
			glog.V(3).Infof("add message %s to %s", msg.ShortString(), ex.shortString())
		}
	}))
	if err != nil {
		return err
	}
	// first registration or refresh of the expiration time
	if ex.registry != nil {
		try.To(ex.registry.Register(ex))
	}
	return nil
}

func invitationOf(msg *didcomm.EndpointMessage) (*oob.Invitation, error) {
	if m, ok := msg.Message(); ok {
		return oob.FromMessage(m)
	}
	return oob.NewV1FromJSON([]byte(msg.BodyJSON()))
}

// Connection returns the connection of the exchange or ErrNoConnection.
func (ex *Exchange) Connection() (c *pairwise.Connection, err error) {
	defer err2.Handle(&err)

	try.To(ex.do(func() {
		c = ex.conn
	}))
	if c == nil {
		return nil, fmt.Errorf("%w: exchange %s", ErrNoConnection, ex.id)
	}
	return c, nil
}

// SetConnection sets the connection once.
func (ex *Exchange) SetConnection(c *pairwise.Connection) (err error) {
	defer err2.Handle(&err, "set connection")

	try.To(ex.do(func() {
		if ex.conn != nil {
			err = ErrConnectionSet
			return
		}
		ex.conn = c
	}))
	return err
}

// Invitation returns the invitation of the exchange. It's nil for the
// resumed exchanges.
func (ex *Exchange) Invitation() (inv *oob.Invitation) {
	_ = ex.do(func() {
		inv = ex.invitation
	})
	return inv
}

// Messages returns a copy of the message list.
func (ex *Exchange) Messages() (msgs []*didcomm.EndpointMessage) {
	_ = ex.do(func() {
		msgs = make([]*didcomm.EndpointMessage, len(ex.messages))
		copy(msgs, ex.messages)
	})
	return msgs
}

func (ex *Exchange) Last() (msg *didcomm.EndpointMessage, ok bool) {
	_ = ex.do(func() {
		if n := len(ex.messages); n > 0 {
			msg, ok = ex.messages[n-1], true
		}
	})
	return msg, ok
}

func (ex *Exchange) CheckLastMessageType(expected string) error {
	last, ok := ex.Last()
	if !ok {
		return ErrNoMessages
	}
	return last.CheckMessageType(expected)
}

// hasThread tells if some message or the invitation belongs to the thread.
func (ex *Exchange) hasThread(thid string) (found bool) {
	_ = ex.do(func() {
		if ex.invitation != nil && ex.invitation.ID == thid {
			found = true
			return
		}
		for _, m := range ex.messages {
			if m.Thid() == thid || m.Pthid() == thid {
				found = true
				return
			}
		}
	})
	return found
}

// ShortString is for logging.
func (ex *Exchange) ShortString() (s string) {
	if err := ex.do(func() { s = ex.shortString() }); err != nil {
		return fmt.Sprintf("[mex=%s closed]", ex.id)
	}
	return s
}

func (ex *Exchange) shortString() string {
	conn := "<nil>"
	if ex.conn != nil {
		conn = ex.conn.ShortString()
	}
	return fmt.Sprintf("[mex=%s, size=%d, pcon=%s]", ex.id, len(ex.messages), conn)
}

// AwaitDefault is AwaitMessage with the configured await timeout.
func (ex *Exchange) AwaitDefault(ctx context.Context, msgType string) (*didcomm.EndpointMessage, error) {
	return ex.AwaitMessage(ctx, msgType, utils.Settings.AwaitTimeout())
}
