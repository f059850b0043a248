package service

import (
	"context"
	"sync"
	"time"

	dErrors "consentd/pkg/domain-errors"
)

// Tx is the atomicity boundary around an evidence-gated grant: consent
// insert, audit append, and transaction link all happen inside one RunInTx
// call. The postgres implementation wraps a database transaction; the
// in-memory one serializes callers touching the same key.
type Tx interface {
	RunInTx(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

const numTxShards = 128

const defaultTxTimeout = 5 * time.Second

// shardedTx distributes callers across shards by a hash of the key, so
// grants on unrelated evidence transactions do not contend while two
// grants racing on the same transaction serialize.
type shardedTx struct {
	shards  [numTxShards]sync.Mutex
	timeout time.Duration
}

// NewMemoryTx returns an in-memory Tx for use with the memory stores.
func NewMemoryTx() Tx {
	return &shardedTx{}
}

func (t *shardedTx) RunInTx(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := hashTxKey(key) % numTxShards
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx)
}

// hashTxKey uses FNV-1a.
func hashTxKey(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
