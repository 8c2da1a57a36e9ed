// Package diddoc is the DID document model and its JSON codec. Both document
// generations are supported: the legacy Aries shape (V1) with publicKey and
// the did-core shape (V2) with verificationMethod and keyAgreement. A Doc is
// always exactly one of them.
package diddoc

import (
	"errors"
	"fmt"
)

var (
	ErrDecode   = errors.New("did document decode")
	ErrKeyType  = errors.New("unknown verification method type")
	ErrMaterial = errors.New("verification material")
)

// KeyType is the closed set of the verification method types we understand.
type KeyType int

const (
	KeyTypeUnknown KeyType = 0 + iota
	Ed25519VerificationKey2018
	Ed25519VerificationKey2020
	X25519KeyAgreementKey2019
	X25519KeyAgreementKey2020
	JSONWebKey2020
)

var keyTypeNames = [...]string{
	KeyTypeUnknown:             "",
	Ed25519VerificationKey2018: "Ed25519VerificationKey2018",
	Ed25519VerificationKey2020: "Ed25519VerificationKey2020",
	X25519KeyAgreementKey2019:  "X25519KeyAgreementKey2019",
	X25519KeyAgreementKey2020:  "X25519KeyAgreementKey2020",
	JSONWebKey2020:             "JsonWebKey2020",
}

func (t KeyType) String() string {
	if t < KeyTypeUnknown || int(t) >= len(keyTypeNames) {
		return ""
	}
	return keyTypeNames[t]
}

// ParseKeyType returns KeyType by its JSON name. Unknown names are errors.
func ParseKeyType(s string) (KeyType, error) {
	for i, name := range keyTypeNames {
		if i != int(KeyTypeUnknown) && name == s {
			return KeyType(i), nil
		}
	}
	return KeyTypeUnknown, fmt.Errorf("%w: %q", ErrKeyType, s)
}

// IsAgreement tells if the key type is for ECDH key agreement.
func (t KeyType) IsAgreement() bool {
	return t == X25519KeyAgreementKey2019 || t == X25519KeyAgreementKey2020
}

// Format is the tag of the verification material, i.e. which JSON field it
// came from.
type Format int

const (
	FormatOther Format = 0 + iota
	FormatJWK
	FormatBase58
	FormatMultibase
)

var formatFields = [...]string{
	FormatOther:     "",
	FormatJWK:       "publicKeyJwk",
	FormatBase58:    "publicKeyBase58",
	FormatMultibase: "publicKeyMultibase",
}

func (f Format) Field() string {
	if f < FormatOther || int(f) >= len(formatFields) {
		return ""
	}
	return formatFields[f]
}

func (f Format) String() string {
	switch f {
	case FormatJWK:
		return "JWK"
	case FormatBase58:
		return "BASE58"
	case FormatMultibase:
		return "MULTIBASE"
	}
	return "OTHER"
}

// Material is the public key of the verification method. JWK values are kept
// as JSON strings.
type Material struct {
	Format Format
	Value  string
}

type VerificationMethod struct {
	ID         string
	Type       KeyType
	Controller string
	Material   Material
}

// Service is the union of V1 and V2 service entries. V1 uses RecipientKeys
// and Priority, V2 uses Accept.
type Service struct {
	ID              string
	Type            string
	ServiceEndpoint string
	Priority        int
	RecipientKeys   []string
	RoutingKeys     []string
	Accept          []string
}

// DIDComm service types of both generations.
const (
	ServiceTypeDIDComm   = "DIDCommMessaging"
	ServiceTypeDIDCommV1 = "did-communication"
	ServiceTypeIndyAgent = "IndyAgent"
)

// IsDIDComm tells if the service is some DIDComm messaging service.
func (s Service) IsDIDComm() bool {
	switch s.Type {
	case ServiceTypeDIDComm, ServiceTypeDIDCommV1, ServiceTypeIndyAgent:
		return true
	}
	return false
}

// Doc is the sealed sum type of the two document generations: *V1 and *V2.
type Doc interface {
	DID() string
	VerificationMethods() []VerificationMethod
	Authentication() []VerificationMethod
	KeyAgreement() []VerificationMethod
	Services() []Service

	isDoc()
}

// V2 is the did-core document. Relationship lists hold verification method
// IDs, embedded methods are moved to VerificationMethod during decoding.
type V2 struct {
	Context              []string
	ID                   string
	AlsoKnownAs          []string
	Controller           []string
	AuthenticationIDs    []string
	KeyAgreementIDs      []string
	AssertionMethod      []string
	CapabilityInvocation []string
	CapabilityDelegation []string
	VerificationMethod   []VerificationMethod
	Service              []Service
}

// V1Auth is the legacy authentication entry referring to a public key.
type V1Auth struct {
	Type      string
	PublicKey string
}

// V1 is the legacy Aries DID document.
type V1 struct {
	Context   string
	ID        string
	PublicKey []VerificationMethod
	Auths     []V1Auth
	Service   []Service
}

func (*V1) isDoc() {}
func (*V2) isDoc() {}

func (d *V2) DID() string { return d.ID }
func (d *V1) DID() string { return d.ID }

func (d *V2) VerificationMethods() []VerificationMethod { return d.VerificationMethod }
func (d *V1) VerificationMethods() []VerificationMethod { return d.PublicKey }

func (d *V2) Services() []Service { return d.Service }
func (d *V1) Services() []Service { return d.Service }

func (d *V2) Authentication() []VerificationMethod {
	return d.resolve(d.AuthenticationIDs)
}

func (d *V2) KeyAgreement() []VerificationMethod {
	return d.resolve(d.KeyAgreementIDs)
}

func (d *V2) resolve(ids []string) []VerificationMethod {
	vms := make([]VerificationMethod, 0, len(ids))
	for _, id := range ids {
		if vm, ok := FindVerificationMethod(d, id); ok {
			vms = append(vms, vm)
		}
	}
	return vms
}

func (d *V1) Authentication() []VerificationMethod {
	vms := make([]VerificationMethod, 0, len(d.Auths))
	for _, a := range d.Auths {
		if vm, ok := FindVerificationMethod(d, a.PublicKey); ok {
			vms = append(vms, vm)
		}
	}
	return vms
}

// KeyAgreement of the V1 document is empty, legacy envelopes use the Ed25519
// keys for encryption as well.
func (d *V1) KeyAgreement() []VerificationMethod {
	return nil
}

// ServiceEndpoint returns the endpoint of the first DIDComm service.
func ServiceEndpoint(d Doc) (string, bool) {
	s, ok := DIDCommService(d)
	if !ok {
		return "", false
	}
	return s.ServiceEndpoint, true
}

// DIDCommService returns the first DIDComm service of the document.
func DIDCommService(d Doc) (Service, bool) {
	for _, s := range d.Services() {
		if s.IsDIDComm() {
			return s, true
		}
	}
	return Service{}, false
}

// FindVerificationMethod finds the method by its ID. Relative IDs (#key-1)
// are matched against the document DID.
func FindVerificationMethod(d Doc, id string) (VerificationMethod, bool) {
	full := absolute(d.DID(), id)
	for _, vm := range d.VerificationMethods() {
		if vm.ID == id || absolute(d.DID(), vm.ID) == full {
			return vm, true
		}
	}
	return VerificationMethod{}, false
}

func absolute(did, id string) string {
	if len(id) > 0 && id[0] == '#' {
		return did + id
	}
	return id
}
