// Package agenttest runs agents in one process for the protocol tests. The
// agents deliver to each other through comm.SendAndWaitReq, so the messages
// go through the real packing, receiving and dispatching.
package agenttest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/findy-network/findy-didcomm/agent/comm"
	"github.com/findy-network/findy-didcomm/agent/exchange"
	"github.com/findy-network/findy-didcomm/agent/pairwise"
	"github.com/findy-network/findy-didcomm/agent/storage/api"
	"github.com/findy-network/findy-didcomm/agent/storage/mgddb"
	"github.com/findy-network/findy-didcomm/agent/wallet"
	"github.com/findy-network/findy-didcomm/method"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

const baseURL = "http://agenttest"

// Agent is one wallet with its own receiver and exchanges.
type Agent struct {
	Wallet    *wallet.Wallet
	Wallets   *wallet.Registry
	Exchanges *exchange.LRU
	Receiver  *comm.Receiver
	Out       *comm.Dispatcher
}

// Endpoint is the URL the agent is reachable at.
func (a *Agent) Endpoint() string {
	return a.Wallet.Endpoint()
}

// Network has the agents by their endpoints.
type Network struct {
	l      sync.RWMutex
	agents map[string]*Agent
	files  []string

	prevSend func(context.Context, string, string, io.Reader) ([]byte, error)
}

// NewNetwork routes the deliveries of the comm package to the agents of the
// network until Close.
func NewNetwork() *Network {
	n := &Network{
		agents:   make(map[string]*Agent),
		prevSend: comm.SendAndWaitReq,
	}
	comm.SendAndWaitReq = n.deliver
	return n
}

// Add opens the wallet of the named agent. Names must be unique within the
// test binary.
func (n *Network) Add(name string) (a *Agent, err error) {
	defer err2.Handle(&err, "add agent %s", name)

	id := "agenttest_" + name
	w := try.To1(wallet.Open(wallet.Config{
		Name:     name,
		Endpoint: baseURL + "/" + name,
		Storage: api.AgentStorageConfig{
			AgentKey: mgddb.GenerateKey(),
			AgentID:  id,
			FilePath: ".",
		},
	}))
	wallets := wallet.NewRegistry()
	wallets.Add(w)
	exchanges := exchange.NewLRU(100, time.Minute)
	out := &comm.Dispatcher{}
	a = &Agent{
		Wallet:    w,
		Wallets:   wallets,
		Exchanges: exchanges,
		Receiver:  comm.NewReceiver(wallets, exchanges, out),
		Out:       out,
	}

	n.l.Lock()
	defer n.l.Unlock()
	n.agents[w.Endpoint()] = a
	n.files = append(n.files, id+".bolt")
	return a, nil
}

// MustAdd is Add for the test set ups.
func (n *Network) MustAdd(name string) *Agent {
	return try.To1(n.Add(name))
}

// Close stops the agents, removes their wallets and restores the delivery.
func (n *Network) Close() {
	n.l.Lock()
	defer n.l.Unlock()

	for _, a := range n.agents {
		a.Receiver.Close()
		if err := a.Wallets.CloseAll(); err != nil {
			glog.Warningln("close wallets:", err)
		}
	}
	for _, f := range n.files {
		os.RemoveAll(f)
	}
	n.agents = map[string]*Agent{}
	comm.SendAndWaitReq = n.prevSend
}

func (n *Network) deliver(ctx context.Context, url, contentType string, msg io.Reader) ([]byte, error) {
	n.l.RLock()
	a, ok := n.agents[strings.TrimSuffix(url, "/")]
	n.l.RUnlock()
	if !ok {
		return nil, &comm.StatusError{Code: http.StatusNotFound, Status: "404 Not Found", Message: url}
	}
	body, err := io.ReadAll(msg)
	if err != nil {
		return nil, err
	}
	if _, err := a.Receiver.Receive(ctx, contentType, body); err != nil {
		return nil, &comm.StatusError{
			Code:    http.StatusInternalServerError,
			Status:  "500 Internal Server Error",
			Message: err.Error(),
		}
	}
	return nil, nil
}

// Connect creates new peer DIDs for both agents and an active connection
// between them to both wallets.
func Connect(a, b *Agent) (ab, ba *pairwise.Connection, err error) {
	return ConnectAs(a, b, pairwise.AgentNessus)
}

// ConnectAs is Connect with the agent type of both connections, e.g.
// pairwise.AgentAcaPy for the legacy envelopes.
func ConnectAs(a, b *Agent, agentType pairwise.AgentType) (ab, ba *pairwise.Connection, err error) {
	defer err2.Handle(&err, "connect %s and %s", a.Wallet.Name(), b.Wallet.Name())

	aDID := try.To1(a.Wallet.CreateDID(method.Peer))
	bDID := try.To1(b.Wallet.CreateDID(method.Peer))
	ab = pairwise.New(pairwise.Info{
		ID:            fmt.Sprintf("%s-%s-%s", a.Wallet.Name(), b.Wallet.Name(), aDID.ID[:12]),
		AgentType:     agentType,
		MyDID:         aDID,
		MyRole:        pairwise.RoleInviter,
		MyLabel:       a.Wallet.Name(),
		TheirDID:      &bDID,
		TheirRole:     pairwise.RoleInvitee,
		TheirLabel:    b.Wallet.Name(),
		TheirEndpoint: b.Endpoint(),
		State:         pairwise.StateActive,
	})
	ba = pairwise.New(pairwise.Info{
		ID:            fmt.Sprintf("%s-%s-%s", b.Wallet.Name(), a.Wallet.Name(), bDID.ID[:12]),
		AgentType:     agentType,
		MyDID:         bDID,
		MyRole:        pairwise.RoleInvitee,
		MyLabel:       b.Wallet.Name(),
		TheirDID:      &aDID,
		TheirRole:     pairwise.RoleInviter,
		TheirLabel:    a.Wallet.Name(),
		TheirEndpoint: a.Endpoint(),
		State:         pairwise.StateActive,
	})
	try.To(a.Wallet.AddConnection(ab))
	try.To(b.Wallet.AddConnection(ba))
	return ab, ba, nil
}

// Exchange returns the exchange of the connection, it is created if needed.
func (a *Agent) Exchange(conn *pairwise.Connection) (*exchange.Exchange, error) {
	return exchange.ForConnection(a.Exchanges, conn)
}
