// Package packager is the aries DIDComm packager of one wallet. It has the
// legacy RFC0019 authcrypt packer and the DIDComm v2 authcrypt and anoncrypt
// packers over the wallet's local KMS.
package packager

import (
	cryptoapi "github.com/hyperledger/aries-framework-go/pkg/crypto"
	"github.com/hyperledger/aries-framework-go/pkg/crypto/tinkcrypto"
	"github.com/hyperledger/aries-framework-go/pkg/didcomm/packager"
	"github.com/hyperledger/aries-framework-go/pkg/didcomm/packer"
	"github.com/hyperledger/aries-framework-go/pkg/didcomm/packer/anoncrypt"
	"github.com/hyperledger/aries-framework-go/pkg/didcomm/packer/authcrypt"
	legacy "github.com/hyperledger/aries-framework-go/pkg/didcomm/packer/legacy/authcrypt"
	"github.com/hyperledger/aries-framework-go/pkg/didcomm/transport"
	"github.com/hyperledger/aries-framework-go/pkg/doc/jose"
	"github.com/hyperledger/aries-framework-go/pkg/framework/aries/api/vdr"
	"github.com/hyperledger/aries-framework-go/pkg/kms"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// Storage is what the packers need from the wallet storage.
type Storage interface {
	storage.Provider
	KMS() kms.KeyManager
}

type Packager struct {
	packager *packager.Packager
	storage  Storage
	registry vdr.Registry
	packers  []packer.Packer
	crypto   cryptoapi.Crypto
}

func New(agentStorage Storage, registry vdr.Registry) (p *Packager, err error) {
	defer err2.Handle(&err, "packager new")

	p = &Packager{
		storage:  agentStorage,
		registry: registry,
		crypto:   try.To1(tinkcrypto.New()),
	}

	p.packers = append(p.packers,
		legacy.New(p),
		try.To1(authcrypt.New(p, jose.A256CBCHS512)),
		try.To1(anoncrypt.New(p, jose.A256GCM)),
	)
	p.packager = try.To1(packager.New(p))
	return p, nil
}

func (p *Packager) PackMessage(envelope *transport.Envelope) ([]byte, error) {
	return p.packager.PackMessage(envelope)
}

func (p *Packager) UnpackMessage(encMessage []byte) (*transport.Envelope, error) {
	return p.packager.UnpackMessage(encMessage)
}

// Packers returns the packers, the legacy one first.
func (p *Packager) Packers() []packer.Packer {
	return p.packers
}

// PrimaryPacker is used when the media type profile is unknown.
func (p *Packager) PrimaryPacker() packer.Packer {
	return p.packers[0]
}

func (p *Packager) VDRegistry() vdr.Registry {
	return p.registry
}

func (p *Packager) KMS() kms.KeyManager {
	return p.storage.KMS()
}

func (p *Packager) Crypto() cryptoapi.Crypto {
	return p.crypto
}

func (p *Packager) StorageProvider() storage.Provider {
	return p.storage
}
