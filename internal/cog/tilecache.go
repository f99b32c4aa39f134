package cog

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/karlseguin/ccache/v3"
)

// DefaultBlockCacheSize is the number of decoded blocks kept when no size is
// configured.
const DefaultBlockCacheSize = 12

// Entries never expire on their own; eviction is purely by recency.
const blockTTL = 100 * 365 * 24 * time.Hour

// BlockCache is an LRU cache of decoded TIFF blocks shared by every dataset
// opened against it. Keys combine a per-dataset identifier with the IFD
// index and block number, so datasets never see each other's blocks.
type BlockCache struct {
	cache  *ccache.Cache[[]byte]
	nextID atomic.Uint64
}

// NewBlockCache creates a cache holding up to maxBlocks decoded blocks.
func NewBlockCache(maxBlocks int) *BlockCache {
	if maxBlocks <= 0 {
		maxBlocks = DefaultBlockCacheSize
	}
	conf := ccache.Configure[[]byte]().
		MaxSize(int64(maxBlocks)).
		ItemsToPrune(1)
	return &BlockCache{cache: ccache.New(conf)}
}

// register hands out a fresh dataset identifier.
func (bc *BlockCache) register() uint64 {
	return bc.nextID.Add(1)
}

func blockPrefix(dataset uint64) string {
	return strconv.FormatUint(dataset, 10) + "/"
}

func blockKey(dataset uint64, ifd, block int) string {
	return blockPrefix(dataset) + strconv.Itoa(ifd) + "/" + strconv.Itoa(block)
}

// Get retrieves a block from the cache. Returns nil if not found.
func (bc *BlockCache) Get(dataset uint64, ifd, block int) []byte {
	item := bc.cache.Get(blockKey(dataset, ifd, block))
	if item == nil || item.Expired() {
		return nil
	}
	return item.Value()
}

// Put stores a decoded block, evicting the least recently used entries once
// the cache is full.
func (bc *BlockCache) Put(dataset uint64, ifd, block int, data []byte) {
	bc.cache.Set(blockKey(dataset, ifd, block), data, blockTTL)
}

// Forget drops every block belonging to dataset.
func (bc *BlockCache) Forget(dataset uint64) int {
	return bc.cache.DeletePrefix(blockPrefix(dataset))
}

// Len returns the number of cached blocks.
func (bc *BlockCache) Len() int {
	return bc.cache.ItemCount()
}

// Stop terminates the cache's background worker.
func (bc *BlockCache) Stop() {
	bc.cache.Stop()
}
