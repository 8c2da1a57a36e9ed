package utils

import (
	"time"

	"github.com/golang/glog"
)

const (
	HTTPReqTimeout = 1 * time.Minute

	defaultWorkerCount      = 8
	defaultExchangeCapacity = 1024
	defaultExchangeTTL      = 24 * time.Hour
	defaultAwaitTimeout     = 10 * time.Second
)

var Settings = &Hub{}

type Hub struct {
	serviceName string        // name of the this service which is used in URLs, etc.
	hostAddr    string        // Ip host name of the server's host seen from internet
	versionInfo string        // Version number etc. in free format as a string
	timeout     time.Duration // timeout setting for http requests and connections

	storagePath string // folder of the bolt files
	storageKey  string // hex key for the bolt value encryption

	workerCount      int           // size of the inbound dispatch pool
	exchangeCapacity int           // max live message exchanges in the registry
	exchangeTTL      time.Duration // idle time before an exchange is evicted
	awaitTimeout     time.Duration // default for protocol steps waiting replies
}

// SetTimeout sets the default timeout for HTTP requests.
func (h *Hub) SetTimeout(to time.Duration) {
	h.timeout = to
}

// SetServiceName sets the service name of this agent. Service name is used in
// the URLs and endpoint addresses.
func (h *Hub) SetServiceName(n string) {
	h.serviceName = n
}

// SetVersionInfo sets current version info of this agent.
func (h *Hub) SetVersionInfo(info string) {
	h.versionInfo = info
}

// SetHostAddr sets current host name of this agent. The host name is used in
// the URLs and endpoints.
func (h *Hub) SetHostAddr(ipName string) {
	h.hostAddr = ipName
}

func (h *Hub) HostAddr() string {
	return h.hostAddr
}

func (h *Hub) ServiceName() string {
	if h.serviceName == "" && glog.V(3) {
		glog.Info("warning service name is empty")
	}
	return h.serviceName
}

// ServiceEndpoint returns the base URL peers use to reach this agent.
func (h *Hub) ServiceEndpoint() string {
	return h.hostAddr + "/" + h.ServiceName()
}

func (h *Hub) VersionInfo() string {
	return h.versionInfo
}

func (h *Hub) Timeout() time.Duration {
	if h.timeout == 0 {
		return HTTPReqTimeout
	}
	return h.timeout
}

func (h *Hub) StoragePath() string {
	return h.storagePath
}

func (h *Hub) SetStoragePath(path string) {
	h.storagePath = path
}

func (h *Hub) StorageKey() string {
	return h.storageKey
}

func (h *Hub) SetStorageKey(key string) {
	h.storageKey = key
}

func (h *Hub) WorkerCount() int {
	if h.workerCount <= 0 {
		return defaultWorkerCount
	}
	return h.workerCount
}

func (h *Hub) SetWorkerCount(n int) {
	h.workerCount = n
}

func (h *Hub) ExchangeCapacity() int {
	if h.exchangeCapacity <= 0 {
		return defaultExchangeCapacity
	}
	return h.exchangeCapacity
}

func (h *Hub) SetExchangeCapacity(n int) {
	h.exchangeCapacity = n
}

func (h *Hub) ExchangeTTL() time.Duration {
	if h.exchangeTTL == 0 {
		return defaultExchangeTTL
	}
	return h.exchangeTTL
}

func (h *Hub) SetExchangeTTL(ttl time.Duration) {
	h.exchangeTTL = ttl
}

// AwaitTimeout is the default time a protocol step waits for the other end.
func (h *Hub) AwaitTimeout() time.Duration {
	if h.awaitTimeout == 0 {
		return defaultAwaitTimeout
	}
	return h.awaitTimeout
}

func (h *Hub) SetAwaitTimeout(to time.Duration) {
	h.awaitTimeout = to
}
