package mgddb

import (
	"github.com/hyperledger/aries-framework-go/pkg/kms"
	"github.com/hyperledger/aries-framework-go/pkg/kms/localkms"
	"github.com/hyperledger/aries-framework-go/pkg/secretlock"
	"github.com/hyperledger/aries-framework-go/pkg/secretlock/noop"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// primaryKeyURI names the master key of the local KMS. With the noop lock it
// only namespaces the keyset, the bolt file itself is encrypted.
const primaryKeyURI = "local-lock://primary/agent/"

// kmsStorage is the kms.Provider of the local KMS. The private keys live in
// the kmsdb bucket.
type kmsStorage struct {
	kms   kms.KeyManager
	store kms.Store
	lock  secretlock.Service
}

func newKmsStorage(owner *Storage) (k *kmsStorage, err error) {
	defer err2.Handle(&err, "new kms storage")

	k = &kmsStorage{
		store: try.To1(kms.NewAriesProviderWrapper(owner)),
		lock:  &noop.NoLock{},
	}
	k.kms = try.To1(localkms.New(primaryKeyURI, k))
	return k, nil
}

func (k *kmsStorage) StorageProvider() kms.Store {
	return k.store
}

func (k *kmsStorage) SecretLock() secretlock.Service {
	return k.lock
}

func (k *kmsStorage) KMS() kms.KeyManager {
	return k.kms
}
