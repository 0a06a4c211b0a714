package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionKey returns the Redis key holding the student id of a login session.
func (r *CacheKeyStruct) SessionKey(tokenID string) string {
	return fmt.Sprintf("session:%s", tokenID)
}

var CacheKey = NewCacheKeyStruct()
