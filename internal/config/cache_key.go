package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// RecordKey returns the hash key holding one record of a collection
func (r *CacheKeyStruct) RecordKey(collection, key string) string {
	return fmt.Sprintf("rtdb:%s:%s", collection, key)
}

// CollectionIndexKey returns the sorted set listing the keys of a collection
func (r *CacheKeyStruct) CollectionIndexKey(collection string) string {
	return fmt.Sprintf("rtdb:%s", collection)
}

// CollectionChangedChannel returns the Redis PubSub channel announcing collection changes
func (r *CacheKeyStruct) CollectionChangedChannel(collection string) string {
	return fmt.Sprintf("rtdb:changed:%s", collection)
}

// SessionTokenKey returns the key marking a client session as signed in
func (r *CacheKeyStruct) SessionTokenKey(sessionID string) string {
	return fmt.Sprintf("auth:session:%s", sessionID)
}

// IdentitySessionsKey returns the set listing the client sessions of an identity
func (r *CacheKeyStruct) IdentitySessionsKey(identityID string) string {
	return fmt.Sprintf("auth:identity:%s:sessions", identityID)
}

var CacheKey = NewCacheKeyStruct()
