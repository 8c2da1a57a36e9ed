// Package mgddb is the agent storage over the encrypted bolt database.
package mgddb

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/findy-network/findy-common-go/dto"
	"github.com/findy-network/findy-didcomm/agent/storage/api"
	"github.com/findy-network/findy-didcomm/agent/storage/wrapper"
	"github.com/findy-network/findy-didcomm/method"
	"github.com/findy-network/findy-didcomm/std/diddoc"
	"github.com/golang/glog"
	"github.com/hyperledger/aries-framework-go/pkg/kms"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/lainio/err2"
	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
)

const (
	NameKMS        = "kmsdb"
	NameDID        = "did"
	NameConnection = "connection"
	NameDoc        = "doc"
	NameKey        = "key"

	NameVDRPeer = "peer"
)

var bucketIDs = []string{
	NameKMS,
	NameDID,
	NameConnection,
	NameDoc,
	NameKey,
	NameVDRPeer,
}

type Storage struct {
	*wrapper.StorageProvider
	kmsStorage *kmsStorage
	didStore   wrapper.Store
	connStore  wrapper.Store
	docStore   wrapper.Store
	keyStore   wrapper.Store
}

func New(config api.AgentStorageConfig) (a *Storage, err error) {
	defer err2.Handle(&err, "agent storage new")

	me := &Storage{
		StorageProvider: wrapper.New(wrapper.Config{
			Key:       config.AgentKey,
			FileName:  config.AgentID,
			FilePath:  config.FilePath,
			BucketIDs: bucketIDs,
		}),
	}
	try.To(me.Init())

	me.kmsStorage = try.To1(newKmsStorage(me))
	me.didStore = me.store(NameDID)
	me.connStore = me.store(NameConnection)
	me.docStore = me.store(NameDoc)
	me.keyStore = me.store(NameKey)

	return me, nil
}

func (s *Storage) store(name string) wrapper.Store {
	st := try.To1(s.OpenStore(name))
	ws, ok := st.(wrapper.Store)
	assert.That(ok, "store %s should always be wrapper store", name)
	return ws
}

// GenerateKey returns a new random storage key in hex.
func GenerateKey() string {
	k := make([]byte, 32)
	try.To1(rand.Read(k))
	return hex.EncodeToString(k)
}

func (s *Storage) Open() error {
	return s.Init()
}

func (s *Storage) KMS() kms.KeyManager {
	return s.kmsStorage.KMS()
}

func (s *Storage) DIDStorage() api.DIDStorage {
	return s
}

func (s *Storage) ConnectionStorage() api.ConnectionStorage {
	return s
}

func (s *Storage) DocStorage() api.DocStorage {
	return s
}

func (s *Storage) KeyStorage() api.KeyStorage {
	return s
}

func get(st wrapper.Store, key string) ([]byte, error) {
	data, err := st.Get(key)
	if errors.Is(err, storage.ErrDataNotFound) {
		return nil, fmt.Errorf("%s: %w", key, api.ErrNotFound)
	}
	return data, err
}

// SaveKeys stores the DID and indexes every public key ID of it to the KMS
// key ID of the private key. The indexed IDs are the base58 verkey, the key
// as did:key and the verification method IDs of the DID document.
func (s *Storage) SaveKeys(k *method.Keys) (err error) {
	defer err2.Handle(&err, "save keys of %s", k.DID)

	uri := k.DID.URI()
	try.To(s.SaveDID(api.DID{
		DID:         uri,
		VerKey:      k.DID.VerKey,
		SignKID:     k.SignKID,
		AgreeKID:    k.AgreeKID,
		AgreeDIDKey: k.AgreeDIDKey,
	}))

	try.To(s.AddKey(k.DID.VerKey, k.SignKID))
	try.To(s.AddKey(method.DIDKey(method.Ed25519Codec, k.SignPub), k.SignKID))
	if k.AgreeKID != "" {
		try.To(s.AddKey(k.AgreeDIDKey, k.AgreeKID))
		try.To(s.AddKey(method.X25519DIDKey(k.AgreePub), k.AgreeKID))
	}

	doc, err := diddoc.Synthesize(uri)
	if err != nil {
		glog.V(3).Infof("no synthesized doc for %s: %v", uri, err)
		return nil
	}
	for _, vm := range doc.VerificationMethod {
		kid := k.SignKID
		if vm.Type.IsAgreement() {
			kid = k.AgreeKID
		}
		if kid != "" {
			try.To(s.AddKey(vm.ID, kid))
		}
	}
	return nil
}

// DIDStorage

func (s *Storage) SaveDID(did api.DID) error {
	return s.didStore.Put(did.DID, dto.ToGOB(did))
}

func (s *Storage) GetDID(uri string) (did *api.DID, err error) {
	defer err2.Handle(&err, "did storage get")

	did = &api.DID{}
	dto.FromGOB(try.To1(get(s.didStore, uri)), did)
	return did, nil
}

func (s *Storage) ListDIDs() (res []api.DID, err error) {
	defer err2.Handle(&err, "did storage list")

	res = make([]api.DID, 0)
	try.To1(s.didStore.GetAll(func(bytes []byte) []byte {
		did := api.DID{}
		dto.FromGOB(bytes, &did)
		res = append(res, did)
		return bytes
	}))
	return res, nil
}

// ConnectionStorage

func (s *Storage) SaveConnection(conn api.Connection) error {
	return s.connStore.Put(conn.ID, dto.ToGOB(conn))
}

func (s *Storage) GetConnection(id string) (conn *api.Connection, err error) {
	defer err2.Handle(&err, "conn storage get")

	conn = &api.Connection{}
	dto.FromGOB(try.To1(get(s.connStore, id)), conn)
	return conn, nil
}

func (s *Storage) ListConnections() (res []api.Connection, err error) {
	defer err2.Handle(&err, "conn storage list")

	res = make([]api.Connection, 0)
	try.To1(s.connStore.GetAll(func(bytes []byte) []byte {
		conn := api.Connection{}
		dto.FromGOB(bytes, &conn)
		res = append(res, conn)
		return bytes
	}))
	return res, nil
}

// DocStorage

func (s *Storage) SaveDoc(did string, data []byte) error {
	return s.docStore.Put(did, data)
}

func (s *Storage) GetDoc(did string) ([]byte, error) {
	return get(s.docStore, did)
}

// KeyStorage

func (s *Storage) AddKey(kid, kmsKID string) error {
	glog.V(5).Infoln("add key", kid)
	return s.keyStore.Put(kid, []byte(kmsKID))
}

func (s *Storage) FindKey(kid string) (string, error) {
	data, err := get(s.keyStore, kid)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *Storage) HasKey(kid string) bool {
	_, err := s.FindKey(kid)
	return err == nil
}
