// Package wallet is the agent's identity holder. A wallet owns its bolt
// storage with the KMS, its DIDs and its connections.
package wallet

import (
	"fmt"
	"strings"
	"sync"

	"github.com/findy-network/findy-didcomm/agent/packager"
	"github.com/findy-network/findy-didcomm/agent/pairwise"
	"github.com/findy-network/findy-didcomm/agent/sec2"
	"github.com/findy-network/findy-didcomm/agent/storage/api"
	"github.com/findy-network/findy-didcomm/agent/storage/cfg"
	"github.com/findy-network/findy-didcomm/agent/storage/mgddb"
	"github.com/findy-network/findy-didcomm/agent/vdr"
	"github.com/findy-network/findy-didcomm/method"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

type Config struct {
	Name      string
	AgentType pairwise.AgentType
	Endpoint  string // our DIDComm service endpoint
	Storage   api.AgentStorageConfig
}

type Wallet struct {
	name      string
	agentType pairwise.AgentType
	endpoint  string

	storageCfg cfg.AgentStorage
	handle     int
	storage    *mgddb.Storage
	vdr        *vdr.VDR
	pipe       *sec2.Pipe

	l     sync.RWMutex
	conns map[string]*pairwise.Connection
}

// Open opens the wallet storage and loads the connections from it.
func Open(c Config) (w *Wallet, err error) {
	defer err2.Handle(&err, "open wallet %s", c.Name)

	w = &Wallet{
		name:       c.Name,
		agentType:  c.AgentType,
		endpoint:   c.Endpoint,
		storageCfg: cfg.AgentStorage{AgentStorageConfig: c.Storage},
		conns:      make(map[string]*pairwise.Connection),
	}
	if w.agentType == "" {
		w.agentType = pairwise.AgentNessus
	}
	w.handle = try.To1(w.storageCfg.OpenWallet())
	w.storage = cfg.Storage(w.handle)
	w.vdr = try.To1(vdr.New(w.storage))
	w.pipe = &sec2.Pipe{
		Docs:    w.vdr,
		Secrets: w.storage.KeyStorage(),
		Pckr:    try.To1(packager.New(w.storage, w.vdr.Registry())),
	}

	for _, r := range try.To1(w.storage.ListConnections()) {
		w.conns[r.ID] = pairwise.FromRecord(r)
	}
	glog.V(1).Infof("wallet %s open, %d connections", w.name, len(w.conns))
	return w, nil
}

func (w *Wallet) Close() error {
	return w.storageCfg.CloseWallet(w.handle)
}

func (w *Wallet) Name() string                  { return w.name }
func (w *Wallet) AgentType() pairwise.AgentType { return w.agentType }
func (w *Wallet) Endpoint() string              { return w.endpoint }
func (w *Wallet) Pipe() *sec2.Pipe              { return w.pipe }
func (w *Wallet) Resolver() *vdr.VDR            { return w.vdr }

// CreateDID creates a new DID with keys in the wallet's KMS. did:peer gets
// the wallet endpoint as its service.
func (w *Wallet) CreateDID(m method.Method) (_ method.DID, err error) {
	defer err2.Handle(&err, "wallet %s create did", w.name)

	var keys *method.Keys
	switch m {
	case method.Key:
		keys = try.To1(method.NewKey(w.storage.KMS()))
	case method.Peer:
		keys = try.To1(method.NewPeer(w.storage.KMS(), w.endpoint))
	default:
		return method.DID{}, fmt.Errorf("%w: cannot create did:%s", method.ErrMalformed, m)
	}
	try.To(w.storage.SaveKeys(keys))
	glog.V(3).Infoln("wallet", w.name, "new did", keys.DID.URI())
	return keys.DID, nil
}

// HasKey tells if the key ID is one of ours.
func (w *Wallet) HasKey(kid string) bool {
	return w.storage.HasKey(kid)
}

// FindDID returns our DID which owns the key ID. The key ID can be a verkey, a
// did:key, a DID URL or the DID itself.
func (w *Wallet) FindDID(kid string) (did method.DID, ok bool) {
	dids, err := w.storage.ListDIDs()
	if err != nil {
		glog.Errorln("wallet list dids:", err)
		return did, false
	}
	uri := kid
	if i := strings.IndexByte(kid, '#'); i >= 0 {
		uri = kid[:i]
	}
	for _, d := range dids {
		if d.DID == uri || d.VerKey == kid || d.AgreeDIDKey == kid {
			return method.New(method.MethodFromString(method.String(d.DID)), d.DID, d.VerKey), true
		}
	}
	return did, false
}

// DIDs returns our DIDs.
func (w *Wallet) DIDs() ([]api.DID, error) {
	return w.storage.ListDIDs()
}

// AddConnection adds and persists the connection.
func (w *Wallet) AddConnection(c *pairwise.Connection) error {
	w.l.Lock()
	w.conns[c.ID()] = c
	w.l.Unlock()
	return w.SaveConnection(c)
}

// SaveConnection persists the current state of the connection.
func (w *Wallet) SaveConnection(c *pairwise.Connection) error {
	return w.storage.SaveConnection(c.Record())
}

func (w *Wallet) Connection(id string) (*pairwise.Connection, bool) {
	w.l.RLock()
	defer w.l.RUnlock()
	c, ok := w.conns[id]
	return c, ok
}

// FindConnection returns the first connection the predicate accepts.
func (w *Wallet) FindConnection(pred func(c *pairwise.Connection) bool) (*pairwise.Connection, bool) {
	w.l.RLock()
	defer w.l.RUnlock()
	for _, c := range w.conns {
		if pred(c) {
			return c, true
		}
	}
	return nil, false
}

func (w *Wallet) Connections() []*pairwise.Connection {
	w.l.RLock()
	defer w.l.RUnlock()
	conns := make([]*pairwise.Connection, 0, len(w.conns))
	for _, c := range w.conns {
		conns = append(conns, c)
	}
	return conns
}

func (w *Wallet) String() string {
	return w.name
}
