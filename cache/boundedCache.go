package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/rs/zerolog"
)

// BoundedCache is a ClientCache with an upper memory bound and a TTL. The
// reference behavior never evicts, which grows without limit on a long-running
// proxy; this backend trades perfect recall for bounded memory. An evicted
// record simply looks like "not observed yet", which the policies tolerate.
type BoundedCache struct {
	bc     *bigcache.BigCache
	logger zerolog.Logger
}

// bigcache wants a Printf-style logger
type printfLogger struct {
	logger zerolog.Logger
}

func (p printfLogger) Printf(format string, v ...interface{}) {
	p.logger.Debug().Msgf(format, v...)
}

func NewBoundedCache(logger zerolog.Logger, maxMemoryMB int, ttl time.Duration) (*BoundedCache, error) {
	config := bigcache.Config{
		Shards:             32,
		LifeWindow:         ttl,
		CleanWindow:        1 * time.Second,
		MaxEntriesInWindow: 1000 * 10 * 60,
		MaxEntrySize:       4096,
		StatsEnabled:       false,
		Verbose:            false,
		HardMaxCacheSize:   maxMemoryMB,
		Logger:             printfLogger{logger: logger},
	}

	bc, err := bigcache.New(context.Background(), config)
	if err != nil {
		return nil, err
	}

	return &BoundedCache{
		bc:     bc,
		logger: logger,
	}, nil
}

func (bw *BoundedCache) AddURL(client, host, relURL string) {
	bw.update(client, host, func(r *HostRecord) {
		r.RelURLs[relURL] = true
	})
}

func (bw *BoundedCache) HasURL(client, host, relURL string) bool {
	r, err := bw.get(client, host)
	if err != nil {
		return false
	}
	return r.RelURLs[relURL]
}

func (bw *BoundedCache) HasDomain(client, host string) bool {
	_, err := bw.get(client, host)
	return err == nil
}

func (bw *BoundedCache) AddCookie(client, host, name string) {
	bw.update(client, host, func(r *HostRecord) {
		r.Cookies[name] = true
	})
}

func (bw *BoundedCache) HasCookie(client, host, name string) bool {
	r, err := bw.get(client, host)
	if err != nil {
		return false
	}
	return r.Cookies[name]
}

// update runs a read-modify-write cycle on one record. Two concurrent updates
// to the same record can lose one of the additions; the entry is then simply
// rediscovered on a later response, so no locking is done here.
func (bw *BoundedCache) update(client, host string, mutate func(*HostRecord)) {
	r, err := bw.get(client, host)
	if err != nil {
		r = newHostRecord()
	}
	mutate(r)
	if err := bw.put(client, host, r); err != nil {
		bw.logger.Debug().Err(err).Str("client", client).Str("host", host).Msg("failed to store host record")
	}
}

func (bw *BoundedCache) get(client, host string) (*HostRecord, error) {
	data, err := bw.bc.Get(recordKey(client, host))
	if err != nil {
		if err == bigcache.ErrEntryNotFound {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	r, err := deserializeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", ErrDeserialization, err)
	}
	return r, nil
}

func (bw *BoundedCache) put(client, host string, r *HostRecord) error {
	serialized, err := serializeRecord(r)
	if err != nil {
		return fmt.Errorf("%v: %w", ErrSerialization, err)
	}
	return bw.bc.Set(recordKey(client, host), serialized)
}
