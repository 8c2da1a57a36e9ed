package exchange

import (
	"time"

	"github.com/bluele/gcache"
	"github.com/findy-network/findy-didcomm/agent/pairwise"
	"github.com/golang/glog"
)

// Registry keeps the live exchanges of the agent. Registering an exchange
// again refreshes it.
type Registry interface {
	Register(ex *Exchange) error
	Get(id string) (*Exchange, bool)
	Remove(id string) bool
	Len() int
	All() []*Exchange

	// Sweep drops the expired exchanges and returns how many there were.
	Sweep() int

	FindByVerkey(verkey string) (*Exchange, bool)
	FindByInvitationKey(key string) []*Exchange
	FindByWallet(label string) []*Exchange
	FindByConnectionID(id string) (*Exchange, bool)
	FindByThread(thid string) (*Exchange, bool)
}

// LRU is a Registry with a max size and an idle time for the exchanges. The
// least recently used exchange is dropped when the registry is full. Dropped
// exchanges are closed.
type LRU struct {
	cache gcache.Cache
}

func NewLRU(size int, ttl time.Duration) *LRU {
	b := gcache.New(size).LRU().EvictedFunc(func(key, value any) {
		glog.V(1).Infoln("evict exchange", key)
		value.(*Exchange).Close()
	})
	if ttl > 0 {
		b = b.Expiration(ttl)
	}
	return &LRU{cache: b.Build()}
}

func (r *LRU) Register(ex *Exchange) error {
	return r.cache.Set(ex.ID(), ex)
}

func (r *LRU) Get(id string) (*Exchange, bool) {
	v, err := r.cache.GetIFPresent(id)
	if err != nil {
		return nil, false
	}
	return v.(*Exchange), true
}

func (r *LRU) Remove(id string) bool {
	return r.cache.Remove(id)
}

func (r *LRU) Len() int {
	return r.cache.Len(true)
}

// All returns the exchanges which are not expired.
func (r *LRU) All() []*Exchange {
	items := r.cache.GetALL(true)
	all := make([]*Exchange, 0, len(items))
	for _, v := range items {
		all = append(all, v.(*Exchange))
	}
	return all
}

func (r *LRU) Sweep() (count int) {
	for _, k := range r.cache.Keys(false) {
		if !r.cache.Has(k) && r.cache.Remove(k) {
			count++
		}
	}
	if count > 0 {
		glog.V(1).Infof("swept %d exchanges, %d left", count, r.Len())
	}
	return count
}

func (r *LRU) find(match func(ex *Exchange) bool) (found []*Exchange) {
	for _, ex := range r.All() {
		if !ex.Closed() && match(ex) {
			found = append(found, ex)
		}
	}
	return found
}

func (r *LRU) first(match func(ex *Exchange) bool) (*Exchange, bool) {
	found := r.find(match)
	if len(found) == 0 {
		return nil, false
	}
	return found[0], true
}

// connOf returns the connection of the exchange or nil.
func connOf(ex *Exchange) *pairwise.Connection {
	c, _ := ex.Connection()
	return c
}

// FindByVerkey returns the exchange of our connection with the verkey.
func (r *LRU) FindByVerkey(verkey string) (*Exchange, bool) {
	ex, ok := r.first(func(ex *Exchange) bool {
		c := connOf(ex)
		return c != nil && c.MyVerkey() == verkey
	})
	if !ok {
		glog.V(3).Infoln("no exchange for verkey", verkey)
	}
	return ex, ok
}

// FindByInvitationKey matches the invitation key of the connection or the
// key of the invitation, because the connection may not exist yet.
func (r *LRU) FindByInvitationKey(key string) []*Exchange {
	return r.find(func(ex *Exchange) bool {
		if c := connOf(ex); c != nil && c.InvitationKey() == key {
			return true
		}
		inv := ex.Invitation()
		return inv != nil && inv.Key() == key
	})
}

// FindByWallet returns the exchanges whose connection is ACTIVE and belongs
// to the wallet with the label.
func (r *LRU) FindByWallet(label string) []*Exchange {
	found := r.find(func(ex *Exchange) bool {
		c := connOf(ex)
		return c != nil && c.MyLabel() == label && c.State() == pairwise.StateActive
	})
	if len(found) == 0 {
		glog.Warningln("cannot find exchange for wallet:", label)
	}
	return found
}

func (r *LRU) FindByConnectionID(id string) (*Exchange, bool) {
	return r.first(func(ex *Exchange) bool {
		c := connOf(ex)
		return c != nil && c.ID() == id
	})
}

func (r *LRU) FindByThread(thid string) (*Exchange, bool) {
	return r.first(func(ex *Exchange) bool {
		return ex.hasThread(thid)
	})
}
