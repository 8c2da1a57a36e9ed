package wallet

import (
	"sort"
	"sync"

	"github.com/findy-network/findy-didcomm/agent/pairwise"
)

// Candidate is a connection with the wallet owning it.
type Candidate struct {
	Wallet *Wallet
	Conn   *pairwise.Connection
}

// Registry has the open wallets of the agent by name.
type Registry struct {
	l       sync.RWMutex
	wallets map[string]*Wallet
}

func NewRegistry() *Registry {
	return &Registry{wallets: make(map[string]*Wallet)}
}

func (r *Registry) Add(w *Wallet) {
	r.l.Lock()
	defer r.l.Unlock()
	r.wallets[w.Name()] = w
}

func (r *Registry) Get(name string) (*Wallet, bool) {
	r.l.RLock()
	defer r.l.RUnlock()
	w, ok := r.wallets[name]
	return w, ok
}

func (r *Registry) Remove(name string) (*Wallet, bool) {
	r.l.Lock()
	defer r.l.Unlock()
	w, ok := r.wallets[name]
	delete(r.wallets, name)
	return w, ok
}

// All returns the wallets sorted by name.
func (r *Registry) All() []*Wallet {
	r.l.RLock()
	defer r.l.RUnlock()
	all := make([]*Wallet, 0, len(r.wallets))
	for _, w := range r.wallets {
		all = append(all, w)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name() < all[j].Name() })
	return all
}

// FindByKey returns the wallet which has the private key of the key ID.
func (r *Registry) FindByKey(kid string) (*Wallet, bool) {
	for _, w := range r.All() {
		if w.HasKey(kid) {
			return w, true
		}
	}
	return nil, false
}

// FindByDID returns the wallet which owns the DID.
func (r *Registry) FindByDID(uri string) (*Wallet, bool) {
	for _, w := range r.All() {
		if _, ok := w.FindDID(uri); ok {
			return w, true
		}
	}
	return nil, false
}

// FindConnections returns the matching connections of all the wallets.
func (r *Registry) FindConnections(match func(c *pairwise.Connection) bool) (found []Candidate) {
	for _, w := range r.All() {
		for _, c := range w.Connections() {
			if match(c) {
				found = append(found, Candidate{Wallet: w, Conn: c})
			}
		}
	}
	return found
}

// CloseAll closes and removes every wallet.
func (r *Registry) CloseAll() (err error) {
	for _, w := range r.All() {
		if e := w.Close(); e != nil {
			err = e
		}
		r.Remove(w.Name())
	}
	return err
}
