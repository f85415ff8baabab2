package cache

import (
	"fmt"
	"strings"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/rs/zerolog"
)

// MemcachedCache keeps client state in memcached so several proxy instances in
// front of the same targets share stripped-URL and cookie observations.
// Backend failures degrade to "not observed yet" instead of failing a request.
type MemcachedCache struct {
	client *memcache.Client
	ttl    int32
	logger zerolog.Logger
}

/*
NewMemcachedCache creates a MemcachedCache with the given default TTL and
server addresses. ttl is expressed in seconds (max 1 month), or an absolute
time in UNIX epoch.
*/
func NewMemcachedCache(logger zerolog.Logger, ttl int32, server ...string) *MemcachedCache {
	return &MemcachedCache{
		client: memcache.New(server...),
		ttl:    ttl,
		logger: logger,
	}
}

func (mw *MemcachedCache) TestConnection() error {
	return mw.client.Ping()
}

func (mw *MemcachedCache) AddURL(client, host, relURL string) {
	mw.update(client, host, func(r *HostRecord) {
		r.RelURLs[relURL] = true
	})
}

func (mw *MemcachedCache) HasURL(client, host, relURL string) bool {
	r, err := mw.get(client, host)
	if err != nil {
		return false
	}
	return r.RelURLs[relURL]
}

func (mw *MemcachedCache) HasDomain(client, host string) bool {
	_, err := mw.get(client, host)
	return err == nil
}

func (mw *MemcachedCache) AddCookie(client, host, name string) {
	mw.update(client, host, func(r *HostRecord) {
		r.Cookies[name] = true
	})
}

func (mw *MemcachedCache) HasCookie(client, host, name string) bool {
	r, err := mw.get(client, host)
	if err != nil {
		return false
	}
	return r.Cookies[name]
}

func (mw *MemcachedCache) update(client, host string, mutate func(*HostRecord)) {
	r, err := mw.get(client, host)
	if err != nil {
		r = newHostRecord()
	}
	mutate(r)
	if err := mw.set(client, host, r); err != nil {
		mw.logger.Debug().Err(err).Str("client", client).Str("host", host).Msg("failed to store host record")
	}
}

// memcachedKey flattens the record key into something memcached accepts:
// no whitespace, at most 250 bytes.
func memcachedKey(client, host string) string {
	key := recordKey(client, host)
	key = strings.ReplaceAll(key, " ", "_")
	if len(key) > 250 {
		key = key[:250]
	}
	return key
}

func (mw *MemcachedCache) get(client, host string) (*HostRecord, error) {
	serialized, err := mw.client.Get(memcachedKey(client, host))
	if err != nil {
		if err == memcache.ErrCacheMiss {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	r, err := deserializeRecord(serialized.Value)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", ErrDeserialization, err)
	}
	return r, nil
}

func (mw *MemcachedCache) set(client, host string, r *HostRecord) error {
	serialized, err := serializeRecord(r)
	if err != nil {
		return fmt.Errorf("%v: %w", ErrSerialization, err)
	}

	return mw.client.Set(&memcache.Item{
		Key:        memcachedKey(client, host),
		Value:      serialized,
		Expiration: mw.ttl,
	})
}
