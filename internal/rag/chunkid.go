package rag

import (
	"fmt"
	"sync/atomic"
	"time"
)

// idSequence breaks ties between chunks minted in the same millisecond, so
// concurrent ingestions into the same collection never collide on ID.
var idSequence atomic.Uint64

// NewChunkID mints a unique chunk identifier of the form
// <collection>_<unix-millis>_<sequence>_<index>. The collection prefix keeps
// IDs traceable to their collection; the sequence makes them unique across
// concurrent ingestion runs.
func NewChunkID(collection string, index int) string {
	return fmt.Sprintf("%s_%d_%d_%d", collection, time.Now().UnixMilli(), idSequence.Add(1), index)
}
