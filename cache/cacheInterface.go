package cache

import (
	"bytes"
	"encoding/gob"
	"errors"
)

var (
	ErrSerialization   = errors.New("serialization error")
	ErrDeserialization = errors.New("deserialization error")
	ErrCacheMiss       = errors.New("cache miss")
)

// HostRecord holds everything observed for one (client, host) pair: the
// relative URLs known to have been served over TLS, and the cookie names the
// origin was seen setting. Both sets only ever grow.
type HostRecord struct {
	RelURLs map[string]bool
	Cookies map[string]bool
}

func newHostRecord() *HostRecord {
	return &HostRecord{
		RelURLs: make(map[string]bool),
		Cookies: make(map[string]bool),
	}
}

// ClientCache is the per-client state shared by the request and response
// transformers. Lookups never fail: a miss means "not observed yet" and
// drives the default policies (secure upstream, drop unknown cookies).
//
// relURL is the normalized path+query form, without scheme, host or fragment.
type ClientCache interface {
	AddURL(client, host, relURL string)
	HasURL(client, host, relURL string) bool
	HasDomain(client, host string) bool
	AddCookie(client, host, name string)
	HasCookie(client, host, name string) bool
}

func serializeRecord(r *HostRecord) ([]byte, error) {
	b := bytes.Buffer{}
	e := gob.NewEncoder(&b)
	err := e.Encode(r)
	if err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func deserializeRecord(serialized []byte) (*HostRecord, error) {
	r := HostRecord{}
	b := bytes.Buffer{}
	b.Write(serialized)
	d := gob.NewDecoder(&b)
	err := d.Decode(&r)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
