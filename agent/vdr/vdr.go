// Package vdr resolves DID documents. Documents are looked up from the
// wallet's own document store, synthesized for self-certifying DIDs, and
// finally resolved with the aries VDR registry. Resolved documents are
// cached.
package vdr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bluele/gcache"
	"github.com/findy-network/findy-didcomm/agent/storage/api"
	"github.com/findy-network/findy-didcomm/method"
	"github.com/findy-network/findy-didcomm/std/diddoc"
	"github.com/golang/glog"
	"github.com/hyperledger/aries-framework-go/pkg/framework/aries/api/vdr"
	registry "github.com/hyperledger/aries-framework-go/pkg/vdr"
	"github.com/hyperledger/aries-framework-go/pkg/vdr/key"
	"github.com/hyperledger/aries-framework-go/pkg/vdr/peer"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/mr-tron/base58"
)

const (
	cacheSize = 256
	cacheTTL  = 10 * time.Minute
)

var ErrNoKey = errors.New("verification method not found")

// Storage is the wallet storage the VDR needs: the aries peer VDR store and
// our own documents.
type Storage interface {
	storage.Provider
	DocStorage() api.DocStorage
}

type VDR struct {
	registry vdr.Registry
	docs     api.DocStorage
	cache    gcache.Cache

	keyVDR  vdr.VDR
	peerVDR vdr.VDR
}

func New(s Storage) (v *VDR, err error) {
	defer err2.Handle(&err, "vdr new")

	v = &VDR{
		keyVDR:  &key.VDR{},
		peerVDR: try.To1(peer.New(s)),
		docs:    s.DocStorage(),
		cache:   gcache.New(cacheSize).LRU().Expiration(cacheTTL).Build(),
	}
	v.registry = registry.New(
		registry.WithVDR(v.keyVDR),
		registry.WithVDR(v.peerVDR),
	)
	return v, nil
}

func (v *VDR) Key() vdr.VDR {
	return v.keyVDR
}

func (v *VDR) Peer() vdr.VDR {
	return v.peerVDR
}

func (v *VDR) Registry() vdr.Registry {
	return v.registry
}

// SaveDoc stores the document to the wallet. It overrides any other source of
// the same DID.
func (v *VDR) SaveDoc(d diddoc.Doc) (err error) {
	defer err2.Handle(&err, "vdr save doc")

	data := try.To1(diddoc.Encode(d))
	try.To(v.docs.SaveDoc(d.DID(), data))
	v.cache.Remove(d.DID())
	return nil
}

// ResolveDoc returns the DID document of the DID. The error wraps
// method.ErrNotResolved when no source knows the DID.
func (v *VDR) ResolveDoc(_ context.Context, uri string) (d diddoc.Doc, err error) {
	defer err2.Handle(&err, "resolve doc %s", uri)

	uri = stripFragment(uri)
	if cached, err := v.cache.Get(uri); err == nil {
		return cached.(diddoc.Doc), nil
	}

	d = try.To1(v.resolve(uri))
	try.To(v.cache.Set(uri, d))
	return d, nil
}

func (v *VDR) resolve(uri string) (diddoc.Doc, error) {
	data, err := v.docs.GetDoc(uri)
	switch {
	case err == nil:
		glog.V(5).Infoln("doc from storage:", uri)
		return diddoc.Decode(data)
	case !errors.Is(err, api.ErrNotFound):
		return nil, err
	}

	if d, err := diddoc.Synthesize(uri); err == nil {
		glog.V(5).Infoln("doc synthesized:", uri)
		return d, nil
	}

	res, err := v.registry.Resolve(uri)
	if err != nil {
		glog.V(3).Infof("registry cannot resolve %s: %v", uri, err)
		return nil, fmt.Errorf("%w: %s", method.ErrNotResolved, uri)
	}
	return diddoc.FromAries(res.DIDDocument)
}

// ResolveKey returns the controller DID and the verification method of the key
// ID. A bare did:key is its own key ID.
func (v *VDR) ResolveKey(ctx context.Context, kid string) (uri string, vm diddoc.VerificationMethod, err error) {
	defer err2.Handle(&err, "resolve key %s", kid)

	uri = stripFragment(kid)
	d := try.To1(v.ResolveDoc(ctx, uri))

	if uri == kid {
		vms := d.VerificationMethods()
		if len(vms) == 0 {
			return "", vm, ErrNoKey
		}
		return d.DID(), vms[0], nil
	}
	vm, ok := diddoc.FindVerificationMethod(d, kid)
	if !ok {
		return "", vm, ErrNoKey
	}
	return d.DID(), vm, nil
}

// ResolveDID implements method.Resolver. The verkey of the DID is its first
// authentication key. Unknown DIDs give nil and nil.
func (v *VDR) ResolveDID(ctx context.Context, uri string) (_ *method.DID, err error) {
	defer err2.Handle(&err, "resolve did %s", uri)

	d, err := v.ResolveDoc(ctx, uri)
	if errors.Is(err, method.ErrNotResolved) {
		return nil, nil
	}
	try.To(err)

	auth := d.Authentication()
	if len(auth) == 0 {
		return nil, fmt.Errorf("%w: no authentication key", ErrNoKey)
	}
	pk := try.To1(auth[0].Material.RawKey())
	did := method.New(method.MethodFromString(method.String(uri)), uri, base58.Encode(pk))
	return &did, nil
}

func stripFragment(uri string) string {
	if i := strings.IndexByte(uri, '#'); i >= 0 {
		return uri[:i]
	}
	return uri
}
