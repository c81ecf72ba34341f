package database

import (
	"github.com/bradfitz/gomemcache/memcache"
)

// NewMemcached opens the optional short-TTL cache for download listings.
func NewMemcached(server string) *memcache.Client {
	return memcache.New(server)
}
