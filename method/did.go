package method

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/mr-tron/base58"
)

var (
	ErrNotResolved = errors.New("did not resolved")
	ErrNotPeer     = errors.New("not a did:peer")
	ErrNumAlgo     = errors.New("unsupported did:peer numalgo")
	ErrMalformed   = errors.New("malformed did")
)

// Resolver is the DID resolver collaborator. It returns nil DID and nil error
// when it doesn't know the DID.
type Resolver interface {
	ResolveDID(ctx context.Context, uri string) (*DID, error)
}

// DID is a method-qualified identifier with its verification key. It's an
// immutable value type, two DIDs are equal when their fingerprints are.
type DID struct {
	Method Method
	ID     string
	VerKey string // base58
}

// New builds a DID from its parts. The id can be a full URI as well, then the
// part after the last ':' is used.
func New(m Method, id, verkey string) DID {
	if i := strings.LastIndexByte(id, ':'); i >= 0 && strings.HasPrefix(id, "did:") {
		id = id[i+1:]
	}
	return DID{Method: m, ID: id, VerKey: verkey}
}

// FromURI constructs the DID from the URI. If verkey is given the DID is built
// directly without resolution, otherwise the resolver is asked.
func FromURI(
	ctx context.Context,
	uri string,
	r Resolver,
	verkey ...string,
) (
	d DID,
	err error,
) {
	defer err2.Handle(&err, "did from uri %s", uri)

	m, id, ok := Parse(uri)
	if !ok {
		return d, ErrMalformed
	}
	if len(verkey) > 0 && verkey[0] != "" {
		return DID{Method: m, ID: id, VerKey: verkey[0]}, nil
	}
	if r == nil {
		return d, ErrNotResolved
	}
	res := try.To1(r.ResolveDID(ctx, uri))
	if res == nil {
		return d, ErrNotResolved
	}
	return *res, nil
}

// URI returns did:{method}:{id}
func (d DID) URI() string {
	return "did:" + d.Method.String() + ":" + d.ID
}

func (d DID) String() string {
	return d.URI()
}

// Fingerprint is the identity of the DID: the URI and the verkey together.
func (d DID) Fingerprint() string {
	return d.URI() + d.VerKey
}

func (d DID) Equal(other DID) bool {
	return d.Fingerprint() == other.Fingerprint()
}

func (d DID) IsZero() bool {
	return d.ID == "" && d.VerKey == ""
}

// VerKeyBytes returns the raw Ed25519 public key.
func (d DID) VerKeyBytes() ([]byte, error) {
	return base58.Decode(d.VerKey)
}

// NumAlgo returns the did:peer numalgo. Only numalgo 0 and 2 are supported.
func (d DID) NumAlgo() (int, error) {
	if d.Method != Peer {
		return 0, fmt.Errorf("%w: %s", ErrNotPeer, d.URI())
	}
	return NumAlgo(d.URI())
}

// NumAlgo returns the numalgo of the did:peer URI.
func NumAlgo(uri string) (int, error) {
	switch {
	case strings.HasPrefix(uri, "did:peer:0"):
		return 0, nil
	case strings.HasPrefix(uri, "did:peer:2"):
		return 2, nil
	case strings.HasPrefix(uri, "did:peer:"):
		return 0, fmt.Errorf("%w: %s", ErrNumAlgo, uri)
	}
	return 0, fmt.Errorf("%w: %s", ErrNotPeer, uri)
}

// SelfCertified builds the DID without a resolver for methods whose ID
// carries the key: did:key, did:peer:0 and did:peer:2.
func SelfCertified(uri string) (d DID, err error) {
	defer err2.Handle(&err, "self certified did")

	m, id, ok := Parse(uri)
	if !ok {
		return d, ErrMalformed
	}
	switch m {
	case Key:
		pk := try.To1(KeyPubKey(uri))
		return DID{Method: Key, ID: id, VerKey: base58.Encode(pk)}, nil
	case Peer:
		p := try.To1(ParsePeer(uri))
		if len(p.Auth) == 0 {
			return d, fmt.Errorf("%w: no authentication key", ErrMalformed)
		}
		return DID{Method: Peer, ID: id, VerKey: base58.Encode(p.Auth[0])}, nil
	}
	return d, fmt.Errorf("%w: %s isn't self certified", ErrNotResolved, uri)
}
