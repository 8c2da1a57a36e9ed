package wrapper

import (
	"errors"

	"github.com/findy-network/findy-common-go/crypto/db"
	"github.com/golang/glog"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// bucket is one named store of the StorageProvider. Tags and queries are not
// supported, aries packers and VDRs don't need them.
type bucket struct {
	name     string
	bucketID byte
	owner    *StorageProvider
}

func (b *bucket) Put(key string, value []byte, tags ...storage.Tag) (err error) {
	glog.V(level7).Infoln("bucket put", b.name, key)

	if key == "" || value == nil {
		return storage.ErrDataNotFound
	}
	if len(tags) > 0 {
		glog.Warningf("bucket %s: tags not supported, ignored for %s", b.name, key)
	}
	return b.owner.addData(b.bucketID, []byte(key), value)
}

// Get returns storage.ErrDataNotFound if the key doesn't exist.
func (b *bucket) Get(key string) (data []byte, err error) {
	defer err2.Handle(&err, "bucket %s get", b.name)

	glog.V(level7).Infoln("bucket get", b.name, key)

	data = try.To1(b.owner.getData(b.bucketID, []byte(key)))
	if len(data) == 0 {
		return nil, storage.ErrDataNotFound
	}
	return data, nil
}

func (b *bucket) GetBulk(keys ...string) (values [][]byte, err error) {
	values = make([][]byte, len(keys))
	for i, k := range keys {
		v, err := b.Get(k)
		if err != nil && !errors.Is(err, storage.ErrDataNotFound) {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func (b *bucket) Delete(key string) error {
	glog.V(level7).Infoln("bucket delete", b.name, key)

	return b.owner.deleteData(b.bucketID, []byte(key))
}

// GetAll returns all the values of the bucket. The transform is called for
// each decrypted value.
func (b *bucket) GetAll(transform db.Filter) ([][]byte, error) {
	glog.V(level7).Infoln("bucket get all", b.name)

	return b.owner.getAll(b.bucketID, transform)
}

// Close does nothing, the StorageProvider owns the database.
func (b *bucket) Close() error {
	return nil
}

func (b *bucket) GetTags(string) ([]storage.Tag, error) {
	return nil, ErrNotSupported
}

func (b *bucket) Query(string, ...storage.QueryOption) (storage.Iterator, error) {
	return nil, ErrNotSupported
}

func (b *bucket) Batch(operations []storage.Operation) (err error) {
	defer err2.Handle(&err, "bucket %s batch", b.name)

	for _, op := range operations {
		if op.Value == nil {
			try.To(b.Delete(op.Key))
			continue
		}
		try.To(b.Put(op.Key, op.Value, op.Tags...))
	}
	return nil
}

func (b *bucket) Flush() error {
	return nil
}
