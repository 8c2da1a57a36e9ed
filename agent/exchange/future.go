package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

var (
	ErrFutureExists    = errors.New("future already placed")
	ErrNoFuture        = errors.New("no future")
	ErrFutureCompleted = errors.New("future already completed")
	ErrTimeout         = errors.New("timeout")
)

// future is a one-shot slot. The buffer lets the completer continue even
// when nobody is waiting yet.
type future chan *didcomm.EndpointMessage

func newFuture() future {
	return make(future, 1)
}

// PlaceFuture installs a slot for the next message of the type. Only one slot
// per message type can be pending.
func (ex *Exchange) PlaceFuture(msgType string) (err error) {
	defer err2.Handle(&err, "place future %s", msgType)

	try.To(ex.do(func() {
		if _, ok := ex.futures[msgType]; ok {
			err = ErrFutureExists
			return
		}
		ex.futures[msgType] = newFuture()
		glog.V(3).Infof("placed future %s on %s", msgType, ex.shortString())
	}))
	return err
}

func (ex *Exchange) HasFuture(msgType string) (ok bool) {
	_ = ex.do(func() {
		_, ok = ex.futures[msgType]
	})
	return ok
}

// AwaitMessage waits until the placed future of the message type is
// completed, the timeout elapses, the ctx is done or the exchange is closed.
// The slot is removed in every case.
func (ex *Exchange) AwaitMessage(
	ctx context.Context,
	msgType string,
	timeout time.Duration,
) (msg *didcomm.EndpointMessage, err error) {
	defer err2.Handle(&err, "await %s on mex=%s", msgType, ex.id)

	var f future
	try.To(ex.do(func() {
		f = ex.futures[msgType]
	}))
	if f == nil {
		return nil, ErrNoFuture
	}
	defer ex.removeFuture(msgType, f)

	glog.V(3).Infof("wait for future %s on mex=%s", msgType, ex.id)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg = <-f:
		return msg, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w after %v", ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-ex.quit:
		return nil, ErrClosed
	}
}

func (ex *Exchange) removeFuture(msgType string, f future) {
	_ = ex.do(func() {
		if ex.futures[msgType] == f {
			delete(ex.futures, msgType)
			glog.V(3).Infof("removed future %s from mex=%s", msgType, ex.id)
		}
	})
}

// CompleteFuture hands the message to the waiter of the future. A future
// can be completed only once.
func (ex *Exchange) CompleteFuture(msgType string, msg *didcomm.EndpointMessage) (err error) {
	defer err2.Handle(&err, "complete future %s", msgType)

	try.To(ex.do(func() {
		f, ok := ex.futures[msgType]
		if !ok {
			err = ErrNoFuture
			return
		}
		select {
		case f <- msg:
			glog.V(3).Infof("complete future %s on %s", msgType, ex.shortString())
		default:
			err = ErrFutureCompleted
		}
	}))
	return err
}
