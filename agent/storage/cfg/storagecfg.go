// Package cfg keeps the open agent storages of the process. A storage is
// opened once per file and shared by handle.
package cfg

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/findy-network/findy-didcomm/agent/storage/api"
	"github.com/findy-network/findy-didcomm/agent/storage/mgddb"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

type AgentStorage struct {
	api.AgentStorageConfig
}

type storageInfo struct {
	storage *mgddb.Storage
	handle  int
	isOpen  bool
}

var storages = struct {
	sync.Mutex
	byID     map[string]*storageInfo
	byHandle []*storageInfo
}{
	byID: make(map[string]*storageInfo),
}

func (c *AgentStorage) UniqueID() string {
	return filepath.Join(c.FilePath, c.AgentID)
}

func (c *AgentStorage) ID() string {
	return c.AgentID
}

func (c *AgentStorage) Key() string {
	return c.AgentKey
}

// OpenWallet opens the storage of the config or reopens the closed one. The
// same config gets always the same handle.
func (c *AgentStorage) OpenWallet() (h int, err error) {
	defer err2.Handle(&err, "open agent storage %s", c.AgentID)

	storages.Lock()
	defer storages.Unlock()

	if info, exist := storages.byID[c.UniqueID()]; exist {
		try.To(info.storage.Open())
		info.isOpen = true
		glog.V(5).Infoln("open existing agent storage:", c.AgentID)
		return info.handle, nil
	}

	aStorage := try.To1(mgddb.New(c.AgentStorageConfig))
	info := &storageInfo{
		storage: aStorage,
		handle:  len(storages.byHandle),
		isOpen:  true,
	}
	storages.byID[c.UniqueID()] = info
	storages.byHandle = append(storages.byHandle, info)
	glog.V(5).Infoln("successful first time opening agent storage:", c.AgentID)
	return info.handle, nil
}

func (c *AgentStorage) CloseWallet(handle int) (err error) {
	defer err2.Handle(&err, "close agent storage %s", c.AgentID)

	storages.Lock()
	defer storages.Unlock()

	info, exist := storages.byID[c.UniqueID()]
	if !exist || info.handle != handle {
		return fmt.Errorf("handle %d: %w", handle, api.ErrNotFound)
	}
	if !info.isOpen {
		glog.Warningf("CloseWallet called but wallet (%s) not open!", c.UniqueID())
		return nil
	}
	try.To(info.storage.Close())
	info.isOpen = false
	glog.V(5).Infoln("successful closing agent storage:", c.AgentID)
	return nil
}

// Storage returns the storage of the handle or nil.
func Storage(handle int) *mgddb.Storage {
	storages.Lock()
	defer storages.Unlock()

	if handle < 0 || handle >= len(storages.byHandle) {
		return nil
	}
	return storages.byHandle[handle].storage
}
