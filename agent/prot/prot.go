/*
Package prot is the protocol dispatch of the agent. Protocol packages register
their handlers by the protocol URI in their init functions. The receiver finds
the protocol by the message type and invokes the handler bound to the message
exchange.
*/
package prot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/findy-network/findy-didcomm/agent/exchange"
	"github.com/findy-network/findy-didcomm/agent/pairwise"
	"github.com/findy-network/findy-didcomm/agent/wallet"
	"github.com/golang/glog"
)

var (
	ErrUnknownProtocol = errors.New("unknown protocol")
	ErrUnsupported     = errors.New("unsupported message type")
)

// Key identifies the protocol.
type Key struct {
	URI string
}

func (k Key) String() string {
	return k.URI
}

// Outbound sends the messages of the protocols to the other end of the
// connection. The media type header of the message selects the envelope.
type Outbound interface {
	Send(ctx context.Context, w *wallet.Wallet, conn *pairwise.Connection, msg *didcomm.EndpointMessage) error
}

// Handler is a protocol bound to a message exchange. Invoke sets the
// exchange of the packet.
type Handler interface {
	URI() string
	Invoke(ctx context.Context, p Packet) error
}

// Factory binds the protocol to the exchange.
type Factory func(ex *exchange.Exchange) Handler

type entry struct {
	key     Key
	factory Factory
}

var protocols = struct {
	sync.RWMutex
	entries []entry
}{}

// Add registers the protocol. Already registered URIs are replaced.
func Add(uri string, f Factory) {
	protocols.Lock()
	defer protocols.Unlock()

	for i, e := range protocols.entries {
		if e.key.URI == uri {
			protocols.entries[i].factory = f
			return
		}
	}
	protocols.entries = append(protocols.entries, entry{key: Key{URI: uri}, factory: f})
	glog.V(5).Infoln("protocol added:", uri)
}

// FindKey returns the key of the registered protocol URI.
func FindKey(uri string) (Key, error) {
	protocols.RLock()
	defer protocols.RUnlock()

	for _, e := range protocols.entries {
		if e.key.URI == uri {
			return e.key, nil
		}
	}
	return Key{}, fmt.Errorf("%w: %s", ErrUnknownProtocol, uri)
}

// KeyFromType returns the key of the first registered protocol whose URI the
// message type starts with.
func KeyFromType(msgType string) (Key, bool) {
	protocols.RLock()
	defer protocols.RUnlock()

	for _, e := range protocols.entries {
		if strings.HasPrefix(msgType, e.key.URI+"/") {
			return e.key, true
		}
	}
	return Key{}, false
}

// Get returns the protocol handler bound to the exchange.
func Get(key Key, ex *exchange.Exchange) (Handler, error) {
	protocols.RLock()
	defer protocols.RUnlock()

	for _, e := range protocols.entries {
		if e.key == key {
			return e.factory(ex), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownProtocol, key)
}

// Keys returns the registered protocols in registration order.
func Keys() []Key {
	protocols.RLock()
	defer protocols.RUnlock()

	keys := make([]Key, len(protocols.entries))
	for i, e := range protocols.entries {
		keys[i] = e.key
	}
	return keys
}
