package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ViewPrefix is the prefix shared by every cached analytics view read.
func (r *CacheKeyStruct) ViewPrefix() string {
	return "amt:view:"
}

// EducationOrganizationsKey returns the cache key for the full EPP dimension list
func (r *CacheKeyStruct) EducationOrganizationsKey() string {
	return r.ViewPrefix() + "eppdim:all"
}

// EducationOrganizationKey returns the cache key for a single EPP dimension row
func (r *CacheKeyStruct) EducationOrganizationKey(key int) string {
	return fmt.Sprintf("%seppdim:%d", r.ViewPrefix(), key)
}

// UserAuthorizationsKey returns the cache key for the full user authorization list
func (r *CacheKeyStruct) UserAuthorizationsKey() string {
	return r.ViewPrefix() + "userauth:all"
}

// UserAuthorizationsByUserKey returns the cache key for one user's authorization rows
func (r *CacheKeyStruct) UserAuthorizationsByUserKey(userKey int) string {
	return fmt.Sprintf("%suserauth:user:%d", r.ViewPrefix(), userKey)
}

// UserAuthorizationsByDistrictKey returns the cache key for a district's authorization rows
func (r *CacheKeyStruct) UserAuthorizationsByDistrictKey(districtID int) string {
	return fmt.Sprintf("%suserauth:district:%d", r.ViewPrefix(), districtID)
}

// VerificationReportKey returns the key under which a verification report is stored
func (r *CacheKeyStruct) VerificationReportKey(jobID string) string {
	return fmt.Sprintf("amt:verification:%s:report", jobID)
}

var CacheKey = NewCacheKeyStruct()
