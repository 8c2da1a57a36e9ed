// Package api defines the agent storage interfaces and the records they
// store.
package api

import (
	"errors"

	"github.com/hyperledger/aries-framework-go/pkg/kms"
	"github.com/hyperledger/aries-framework-go/spi/storage"
)

var ErrNotFound = errors.New("not found")

type AgentStorageConfig struct {
	AgentKey string
	AgentID  string
	FilePath string
}

type AgentStorage interface {
	Open() error
	Close() error

	KMS() kms.KeyManager

	DIDStorage() DIDStorage
	ConnectionStorage() ConnectionStorage
	DocStorage() DocStorage
	KeyStorage() KeyStorage

	OpenStore(name string) (storage.Store, error)
}

// DID is our own DID and the KMS key IDs of its keys.
type DID struct {
	DID         string // URI, the key of the record
	VerKey      string
	SignKID     string
	AgreeKID    string
	AgreeDIDKey string
}

type DIDStorage interface {
	SaveDID(did DID) error
	GetDID(uri string) (*DID, error)
	ListDIDs() ([]DID, error)
}

// Connection is the persisted snapshot of a pairwise connection.
type Connection struct {
	ID            string
	AgentType     string
	InvitationKey string
	Alias         string
	State         string
	MyDID         string
	MyVerKey      string
	MyRole        string
	MyLabel       string
	MyEndpoint    string
	TheirDID      string
	TheirVerKey   string
	TheirRole     string
	TheirLabel    string
	TheirEndpoint string
	TheirRoute    []string
}

type ConnectionStorage interface {
	SaveConnection(conn Connection) error
	GetConnection(id string) (*Connection, error)
	ListConnections() ([]Connection, error)
}

// DocStorage stores DID documents as JSON by their DID.
type DocStorage interface {
	SaveDoc(did string, data []byte) error
	GetDoc(did string) ([]byte, error)
}

// KeyStorage maps public key IDs (base58 verkeys, did:keys and verification
// method IDs) to the KMS key IDs of our private keys.
type KeyStorage interface {
	AddKey(kid, kmsKID string) error
	FindKey(kid string) (string, error)
	HasKey(kid string) bool
}
