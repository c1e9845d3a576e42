package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"
)

const cacheVersion = "2.0"

// ErrCacheMiss is returned when a key has no cached payload
var ErrCacheMiss = errors.New("cache miss")

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// CacheManager stores backend responses on disk: a YAML index plus one
// JSON payload file per key.
type CacheManager struct {
	mu       sync.Mutex
	cacheDir string
	apiURL   string
	ttl      time.Duration
	now      func() time.Time
}

// CacheMetadata stores metadata about the cache
type CacheMetadata struct {
	APIURL       string    `yaml:"api_url"`
	CacheVersion string    `yaml:"cache_version"`
	CreatedAt    time.Time `yaml:"created_at"`
	UpdatedAt    time.Time `yaml:"updated_at"`
}

// CacheIndexEntry describes one cached payload
type CacheIndexEntry struct {
	Key      string    `yaml:"key"`
	File     string    `yaml:"file"`
	StoredAt time.Time `yaml:"stored_at"`
	Size     int       `yaml:"size"`
}

// CacheIndex is the YAML index of all cached payloads
type CacheIndex struct {
	Entries  []CacheIndexEntry `yaml:"entries"`
	Metadata CacheMetadata     `yaml:"metadata"`
}

// CachedValue reports how a Get was satisfied
type CachedValue struct {
	StoredAt time.Time
	Fresh    bool
}

// NewCacheManager creates a cache for responses of the backend at apiURL.
// Entries older than ttl are stale but still readable.
func NewCacheManager(cacheDir, apiURL string, ttl time.Duration) *CacheManager {
	return &CacheManager{
		cacheDir: cacheDir,
		apiURL:   apiURL,
		ttl:      ttl,
		now:      time.Now,
	}
}

// EnsureCacheDir ensures the cache directory exists
func (cm *CacheManager) EnsureCacheDir() error {
	return os.MkdirAll(cm.cacheDir, 0755)
}

// GetCacheDir returns the cache directory path
func (cm *CacheManager) GetCacheDir() string {
	return cm.cacheDir
}

// GetIndexPath returns the path to the index YAML file
func (cm *CacheManager) GetIndexPath() string {
	return filepath.Join(cm.cacheDir, "responses.yaml")
}

// GetEntryPath returns the path to a key's payload file
func (cm *CacheManager) GetEntryPath(key string) string {
	return filepath.Join(cm.cacheDir, fmt.Sprintf("response_%s.json", unsafeKeyChars.ReplaceAllString(key, "_")))
}

// IsCacheValid reports whether the cache on disk was written for the
// configured backend with the current layout.
func (cm *CacheManager) IsCacheValid() bool {
	index, err := cm.LoadIndex()
	if err != nil {
		return false
	}
	return index.Metadata.APIURL == cm.apiURL && index.Metadata.CacheVersion == cacheVersion
}

// LoadIndex loads the cache index
func (cm *CacheManager) LoadIndex() (*CacheIndex, error) {
	data, err := os.ReadFile(cm.GetIndexPath())
	if err != nil {
		return nil, err
	}

	var index CacheIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to unmarshal index: %w", err)
	}
	return &index, nil
}

// SaveIndex saves the cache index
func (cm *CacheManager) SaveIndex(index *CacheIndex) error {
	if err := cm.EnsureCacheDir(); err != nil {
		return err
	}

	data, err := yaml.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	return os.WriteFile(cm.GetIndexPath(), data, 0644)
}

// Put stores v under key and records it in the index
func (cm *CacheManager) Put(key string, v interface{}) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if err := cm.EnsureCacheDir(); err != nil {
		return &StorageError{Path: cm.cacheDir, Op: "mkdir", Err: err}
	}

	data, err := sonic.ConfigDefault.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	path := cm.GetEntryPath(key)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &StorageError{Path: path, Op: "write", Err: err}
	}

	index := cm.loadOrResetIndex()
	entry := CacheIndexEntry{
		Key:      key,
		File:     filepath.Base(path),
		StoredAt: cm.now(),
		Size:     len(data),
	}
	found := false
	for i, e := range index.Entries {
		if e.Key == key {
			index.Entries[i] = entry
			found = true
			break
		}
	}
	if !found {
		index.Entries = append(index.Entries, entry)
	}
	index.Metadata.UpdatedAt = cm.now()

	return cm.SaveIndex(index)
}

// loadOrResetIndex returns the current index, or a fresh one when the
// index is missing or belongs to another backend. Caller holds mu.
func (cm *CacheManager) loadOrResetIndex() *CacheIndex {
	if index, err := cm.LoadIndex(); err == nil &&
		index.Metadata.APIURL == cm.apiURL && index.Metadata.CacheVersion == cacheVersion {
		return index
	}
	now := cm.now()
	return &CacheIndex{
		Entries: make([]CacheIndexEntry, 0),
		Metadata: CacheMetadata{
			APIURL:       cm.apiURL,
			CacheVersion: cacheVersion,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}
}

// Get decodes the payload stored under key into v. Stale entries are
// returned with Fresh set to false. A missing key yields ErrCacheMiss.
func (cm *CacheManager) Get(key string, v interface{}) (CachedValue, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if !cm.IsCacheValid() {
		return CachedValue{}, ErrCacheMiss
	}
	index, err := cm.LoadIndex()
	if err != nil {
		return CachedValue{}, ErrCacheMiss
	}

	var entry *CacheIndexEntry
	for i := range index.Entries {
		if index.Entries[i].Key == key {
			entry = &index.Entries[i]
			break
		}
	}
	if entry == nil {
		return CachedValue{}, ErrCacheMiss
	}

	path := filepath.Join(cm.cacheDir, entry.File)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return CachedValue{}, ErrCacheMiss
		}
		return CachedValue{}, &StorageError{Path: path, Op: "read", Err: err}
	}
	if err := sonic.Unmarshal(data, v); err != nil {
		return CachedValue{}, &StorageError{Path: path, Op: "parse", Err: err}
	}

	fresh := cm.ttl <= 0 || cm.now().Sub(entry.StoredAt) < cm.ttl
	return CachedValue{StoredAt: entry.StoredAt, Fresh: fresh}, nil
}

// ClearCache removes every payload and the index
func (cm *CacheManager) ClearCache() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if index, err := cm.LoadIndex(); err == nil {
		for _, entry := range index.Entries {
			_ = os.Remove(filepath.Join(cm.cacheDir, entry.File))
		}
	}

	if err := os.Remove(cm.GetIndexPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
