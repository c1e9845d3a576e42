package internal

import (
	"context"
	"errors"
	"time"
)

// Where a resolved response came from
const (
	SourceNetwork    = "network"
	SourceCache      = "cache"
	SourceStaleCache = "stale-cache"
	SourceFallback   = "fallback"
)

const (
	cacheKeyTodayRaces    = "today-races"
	cacheKeyDatabaseStats = "database-stats"
)

// RaceDataSource is the subset of the API used for cacheable lookups
type RaceDataSource interface {
	TodayRaces(ctx context.Context) (*TodayRaces, error)
	DatabaseStats(ctx context.Context) (*DatabaseStatsResponse, error)
}

// FallbackResolver serves today's races and database statistics from a
// fresh cache entry, then the network, then a stale cache entry, then
// built-in defaults. Lookups through it never fail.
type FallbackResolver struct {
	api     RaceDataSource
	cache   *CacheManager
	refresh bool
}

// NewFallbackResolver creates a resolver. cache may be nil.
func NewFallbackResolver(api RaceDataSource, cache *CacheManager) *FallbackResolver {
	return &FallbackResolver{api: api, cache: cache}
}

// SetRefresh makes the resolver skip fresh cache entries
func (r *FallbackResolver) SetRefresh(refresh bool) {
	r.refresh = refresh
}

// TodayRaces resolves today's race card
func (r *FallbackResolver) TodayRaces(ctx context.Context) *TodayRaces {
	var fetch func(context.Context) (*TodayRaces, error)
	if r.api != nil {
		fetch = r.api.TodayRaces
	}
	return resolve(ctx, r, cacheKeyTodayRaces, fetch, FallbackTodayRaces)
}

// DatabaseStats resolves the database statistics
func (r *FallbackResolver) DatabaseStats(ctx context.Context) *DatabaseStatsResponse {
	var fetch func(context.Context) (*DatabaseStatsResponse, error)
	if r.api != nil {
		fetch = r.api.DatabaseStats
	}
	return resolve(ctx, r, cacheKeyDatabaseStats, fetch, FallbackDatabaseStats)
}

type sourced interface {
	setSource(string)
}

func (t *TodayRaces) setSource(s string)            { t.Source = s }
func (d *DatabaseStatsResponse) setSource(s string) { d.Source = s }

func resolve[T any, PT interface {
	*T
	sourced
}](ctx context.Context, r *FallbackResolver, key string, fetch func(context.Context) (PT, error), fallback func() PT) PT {
	if r.cache != nil && !r.refresh {
		var cached T
		if cv, err := r.cache.Get(key, &cached); err == nil && cv.Fresh {
			LogDebug("%s served from cache (stored %s)", key, cv.StoredAt.Format(time.RFC3339))
			PT(&cached).setSource(SourceCache)
			return &cached
		}
	}

	if fetch != nil {
		v, err := fetch(ctx)
		if err == nil {
			if r.cache != nil {
				if err := r.cache.Put(key, v); err != nil {
					LogWarn("Failed to cache %s: %v", key, err)
				}
			}
			v.setSource(SourceNetwork)
			return v
		}
		LogWarn("Failed to fetch %s: %v", key, err)
	}

	if r.cache != nil {
		var cached T
		cv, err := r.cache.Get(key, &cached)
		if err == nil {
			LogInfo("Using cached %s from %s", key, cv.StoredAt.Format(time.RFC3339))
			PT(&cached).setSource(SourceStaleCache)
			return &cached
		}
		if !errors.Is(err, ErrCacheMiss) {
			LogWarn("Failed to read cached %s: %v", key, err)
		}
	}

	v := fallback()
	v.setSource(SourceFallback)
	return v
}

// ConditionSource serves the condition catalog
type ConditionSource interface {
	Conditions(ctx context.Context) ([]Condition, error)
}

// ResolveConditions returns the catalog served by src together with its
// source. The built-in Catalog is used when src is nil, fails, or serves
// an empty list.
func ResolveConditions(ctx context.Context, src ConditionSource) ([]Condition, string) {
	if src != nil {
		catalog, err := src.Conditions(ctx)
		if err == nil && len(catalog) > 0 {
			return catalog, SourceNetwork
		}
		if err != nil {
			LogWarn("Failed to fetch conditions: %v", err)
		}
	}
	return Catalog, SourceFallback
}

// FallbackDatabaseStats returns the built-in statistics shown when the
// backend is unreachable.
func FallbackDatabaseStats() *DatabaseStatsResponse {
	return NormalizeDatabaseStats(&DatabaseStatsResponse{
		Status: "fallback",
		DatabaseStats: DatabaseStats{
			TotalRecords: 1050000,
			TotalHorses:  115000,
			TotalRaces:   85000,
			YearsSpan:    71,
			Period:       "1954-2025",
		},
		DisplayText: DisplayText{
			Records: "105万",
			Horses:  "11.5万",
			Races:   "8.5万",
			Years:   "71年",
		},
		Source: SourceFallback,
	})
}

// FallbackTodayRaces returns a small sample card shown when neither the
// backend nor the cache can provide one.
func FallbackTodayRaces() *TodayRaces {
	return &TodayRaces{
		Date: time.Now().Format("2006-01-02"),
		Racecourses: []Racecourse{
			{
				Name:           "東京",
				CourseID:       "tokyo",
				Weather:        "晴",
				TrackCondition: "良",
				RaceCount:      2,
				Races: []Race{
					{RaceID: "202412010101", RaceNumber: 1, RaceName: "2歳未勝利", Time: "10:30", Distance: "1600m", Track: "芝", EntryCount: 12},
					{RaceID: "202412010102", RaceNumber: 2, RaceName: "3歳以上1勝クラス", Time: "11:00", Distance: "2000m", Track: "芝", EntryCount: 10},
				},
			},
		},
		Source: SourceFallback,
	}
}
