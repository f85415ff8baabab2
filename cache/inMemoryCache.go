package cache

import (
	"sync"
)

// InMemoryCache is the reference ClientCache: plain maps guarded by locks,
// nothing ever evicted for the lifetime of the process. Records are locked
// individually so concurrent requests from different clients do not contend.
type InMemoryCache struct {
	lock    sync.RWMutex
	records map[string]*lockedRecord
}

type lockedRecord struct {
	lock sync.RWMutex
	rec  *HostRecord
}

func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		records: make(map[string]*lockedRecord),
	}
}

func recordKey(client, host string) string {
	return client + "|" + host
}

// record returns the entry for (client, host), creating it when create is set.
func (c *InMemoryCache) record(client, host string, create bool) *lockedRecord {
	key := recordKey(client, host)

	c.lock.RLock()
	r := c.records[key]
	c.lock.RUnlock()

	if r != nil || !create {
		return r
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	// double check: another goroutine may have created it in the meantime
	r = c.records[key]
	if r == nil {
		r = &lockedRecord{rec: newHostRecord()}
		c.records[key] = r
	}
	return r
}

func (c *InMemoryCache) AddURL(client, host, relURL string) {
	r := c.record(client, host, true)
	r.lock.Lock()
	r.rec.RelURLs[relURL] = true
	r.lock.Unlock()
}

func (c *InMemoryCache) HasURL(client, host, relURL string) bool {
	r := c.record(client, host, false)
	if r == nil {
		return false
	}
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.rec.RelURLs[relURL]
}

func (c *InMemoryCache) HasDomain(client, host string) bool {
	return c.record(client, host, false) != nil
}

func (c *InMemoryCache) AddCookie(client, host, name string) {
	r := c.record(client, host, true)
	r.lock.Lock()
	r.rec.Cookies[name] = true
	r.lock.Unlock()
}

func (c *InMemoryCache) HasCookie(client, host, name string) bool {
	r := c.record(client, host, false)
	if r == nil {
		return false
	}
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.rec.Cookies[name]
}
