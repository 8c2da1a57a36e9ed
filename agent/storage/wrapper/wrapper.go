// Package wrapper implements the aries storage provider interface over an
// encrypted bolt database. Every named store is one bolt bucket, keys are
// hashed and values encrypted with the agent key.
package wrapper

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/findy-network/findy-common-go/crypto"
	"github.com/findy-network/findy-common-go/crypto/db"
	"github.com/golang/glog"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

const level7 = 7

var (
	ErrNotSupported = errors.New("not supported")
	ErrClosed       = errors.New("storage closed")
)

type Store interface {
	storage.Store
	GetAll(transform db.Filter) ([][]byte, error)
}

type Config struct {
	Key       string // hex encoded AES key
	FileName  string
	FilePath  string
	BucketIDs []string
}

type StorageProvider struct {
	l sync.RWMutex

	conf    Config
	db      db.Handle
	buckets map[string]*bucket
	configs map[string]storage.StoreConfiguration
	cipher  *crypto.Cipher
}

func New(config Config) *StorageProvider {
	s := &StorageProvider{
		conf:    config,
		buckets: make(map[string]*bucket, len(config.BucketIDs)),
		configs: make(map[string]storage.StoreConfiguration),
	}
	for i, name := range s.conf.BucketIDs {
		s.buckets[name] = &bucket{owner: s, bucketID: byte(i), name: name}
	}
	return s
}

// Filename returns the bolt file of the storage.
func (s *StorageProvider) Filename() string {
	path := "."
	if s.conf.FilePath != "" {
		path = s.conf.FilePath
	}
	return filepath.Join(path, s.conf.FileName+".bolt")
}

// Init prepares the database. The file is opened lazily by the first access.
// Init is idempotent.
func (s *StorageProvider) Init() (err error) {
	defer err2.Handle(&err, "storage init %s", s.conf.FileName)

	s.l.Lock()
	defer s.l.Unlock()

	if s.db != nil {
		glog.V(3).Infof("storage %s already open", s.conf.FileName)
		return nil
	}
	if len(s.conf.BucketIDs) == 0 {
		return fmt.Errorf("no buckets specified")
	}

	k := try.To1(hex.DecodeString(s.conf.Key))
	s.cipher = crypto.NewCipher(k)

	mgdBuckets := make([][]byte, 0, len(s.conf.BucketIDs))
	for i := range s.conf.BucketIDs {
		mgdBuckets = append(mgdBuckets, []byte{byte(i)})
	}

	filename := s.Filename()
	s.db = db.New(db.Cfg{
		Filename:   filename,
		Buckets:    mgdBuckets,
		BackupName: filename + "_backup",
	})
	return nil
}

func (s *StorageProvider) ID() string {
	return s.conf.FileName
}

// OpenStore returns the named bucket. Only the buckets given in the Config
// exist.
func (s *StorageProvider) OpenStore(name string) (storage.Store, error) {
	glog.V(level7).Infoln("open store", s.ID(), name)

	if b, ok := s.buckets[name]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("store %s: %w", name, storage.ErrStoreNotFound)
}

func (s *StorageProvider) Close() (err error) {
	defer err2.Handle(&err, "storage close %s", s.conf.FileName)

	s.l.Lock()
	defer s.l.Unlock()

	if s.db == nil {
		glog.V(3).Infof("storage %s already closed", s.conf.FileName)
		return nil
	}
	try.To(s.db.Close())
	s.db = nil
	return nil
}

func (s *StorageProvider) SetStoreConfig(name string, config storage.StoreConfiguration) error {
	if _, ok := s.buckets[name]; !ok {
		return fmt.Errorf("store %s: %w", name, storage.ErrStoreNotFound)
	}
	s.l.Lock()
	defer s.l.Unlock()
	s.configs[name] = config
	return nil
}

func (s *StorageProvider) GetStoreConfig(name string) (storage.StoreConfiguration, error) {
	s.l.RLock()
	defer s.l.RUnlock()
	if c, ok := s.configs[name]; ok {
		return c, nil
	}
	return storage.StoreConfiguration{}, fmt.Errorf("store %s: %w", name, storage.ErrStoreNotFound)
}

func (s *StorageProvider) GetOpenStores() []storage.Store {
	stores := make([]storage.Store, 0, len(s.buckets))
	for _, name := range s.conf.BucketIDs {
		stores = append(stores, s.buckets[name])
	}
	return stores
}

func (s *StorageProvider) addData(bucketID byte, key, value []byte) error {
	s.l.RLock()
	defer s.l.RUnlock()

	if s.db == nil {
		return ErrClosed
	}
	return s.db.AddKeyValueToBucket([]byte{bucketID},
		&db.Data{Data: value, Read: s.encrypt},
		&db.Data{Data: key, Read: s.hash},
	)
}

func (s *StorageProvider) getData(bucketID byte, key []byte) (value []byte, err error) {
	s.l.RLock()
	defer s.l.RUnlock()

	if s.db == nil {
		return nil, ErrClosed
	}
	_, err = s.db.GetKeyValueFromBucket([]byte{bucketID},
		&db.Data{Data: key, Read: s.hash},
		&db.Data{
			Write: s.decrypt,
			Use: func(d []byte) interface{} {
				value = d
				return nil
			},
		})
	return value, err
}

func (s *StorageProvider) deleteData(bucketID byte, key []byte) error {
	s.l.RLock()
	defer s.l.RUnlock()

	if s.db == nil {
		return ErrClosed
	}
	return s.db.RmKeyValueFromBucket([]byte{bucketID}, &db.Data{Data: key, Read: s.hash})
}

func (s *StorageProvider) getAll(bucketID byte, transform db.Filter) ([][]byte, error) {
	s.l.RLock()
	defer s.l.RUnlock()

	if s.db == nil {
		return nil, ErrClosed
	}
	return s.db.GetAllValuesFromBucket([]byte{bucketID}, s.decrypt, transform)
}

// hash is for keys. Keys are looked up by equality only, so one-way hashing
// is enough.
func (s *StorageProvider) hash(key []byte) []byte {
	h := md5.Sum(key)
	return h[:]
}

func (s *StorageProvider) encrypt(value []byte) []byte {
	return s.cipher.TryEncrypt(value)
}

func (s *StorageProvider) decrypt(value []byte) []byte {
	return s.cipher.TryDecrypt(value)
}
