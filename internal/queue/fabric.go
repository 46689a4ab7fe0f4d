package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/sentinelai/sentinel/internal/interfaces"
	"github.com/sentinelai/sentinel/internal/models"
)

// Work queue names. Each has a ".dlq" sibling for poison items.
const (
	QueueDocument = "document"
	QueueAudio    = "audio"
	QueueVideo    = "video"
	QueueCDR      = "cdr"
	QueueGraph    = "graph"
)

// WorkQueues lists every work queue the fabric serves
var WorkQueues = []string{QueueDocument, QueueAudio, QueueVideo, QueueCDR, QueueGraph}

// ReasonTimeoutExhausted is the dead-letter reason for items whose
// visibility timeout lapsed past the retry budget without an explicit nack
const ReasonTimeoutExhausted = "visibility timeout exceeded retry budget"

// queuedItem is the internal envelope stored in Badger
type queuedItem struct {
	ID           string          `json:"id"`
	Item         models.WorkItem `json:"item"`
	EnqueuedAt   time.Time       `json:"enqueued_at"`
	VisibleAt    time.Time       `json:"visible_at"`
	ReceiveCount int             `json:"receive_count"`
}

// Fabric implements a set of named FIFO work queues plus their dead-letter
// siblings on BadgerDB. Delivery is at-least-once with visibility timeouts:
// a consumed item stays invisible until acked, extended, or timed out.
type Fabric struct {
	db                *badger.DB
	visibilityTimeout time.Duration
	maxRetries        int
	backoffBase       time.Duration
	logger            arbor.ILogger
}

// NewFabric creates a queue fabric over an open Badger database.
// The database is managed externally (shared with the metadata store).
func NewFabric(db *badger.DB, visibilityTimeout time.Duration, maxRetries int, backoffBase time.Duration, logger arbor.ILogger) (*Fabric, error) {
	if db == nil {
		return nil, errors.New("badger db is required")
	}
	if visibilityTimeout <= 0 {
		visibilityTimeout = 5 * time.Minute
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if backoffBase <= 0 {
		backoffBase = 60 * time.Second
	}
	return &Fabric{
		db:                db,
		visibilityTimeout: visibilityTimeout,
		maxRetries:        maxRetries,
		backoffBase:       backoffBase,
		logger:            logger,
	}, nil
}

// Publish enqueues a work item, immediately visible
func (f *Fabric) Publish(ctx context.Context, queue string, item models.WorkItem) error {
	now := time.Now()
	qItem := queuedItem{
		ID:         uuid.New().String(),
		Item:       item,
		EnqueuedAt: now,
		VisibleAt:  now,
	}
	data, err := json.Marshal(qItem)
	if err != nil {
		return fmt.Errorf("failed to marshal work item: %w", err)
	}

	return f.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(msgKey(queue, qItem.ID), data); err != nil {
			return err
		}
		return txn.Set(indexKey(queue, qItem.VisibleAt, qItem.ID), []byte{})
	})
}

// Consume pulls the next visible item from the queue, or models.ErrNoMessage.
// The returned delivery carries Ack, Nack, and Extend handles. An item whose
// visibility timeout lapsed past the retry budget is moved to the DLQ and
// returned with DeadLettered set so the caller can settle it; it is never
// swallowed silently.
func (f *Fabric) Consume(ctx context.Context, queue string) (*interfaces.Delivery, error) {
	var claimed queuedItem
	var exhausted bool

	err := f.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := indexPrefix(queue)
		it := txn.NewIterator(opts)
		defer it.Close()

		now := time.Now()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			ts, id, err := parseIndexKey(queue, key)
			if err != nil {
				continue
			}
			if ts.After(now) {
				// Index keys sort by visibility time: nothing later is ready
				break
			}

			msgItem, err := txn.Get(msgKey(queue, id))
			if err != nil {
				if err == badger.ErrKeyNotFound {
					// Stale index entry, clean up and keep scanning
					if derr := txn.Delete(key); derr != nil {
						return derr
					}
					continue
				}
				return err
			}

			var qItem queuedItem
			if err := msgItem.Value(func(val []byte) error {
				return json.Unmarshal(val, &qItem)
			}); err != nil {
				return err
			}

			// Crash-redelivery safety: an item that keeps timing out
			// without an explicit nack still exhausts its budget. The
			// caller gets it back flagged so the artifact settles.
			if qItem.ReceiveCount > f.maxRetries {
				if err := f.moveToDLQTxn(txn, queue, &qItem, ReasonTimeoutExhausted); err != nil {
					return err
				}
				if err := txn.Delete(key); err != nil {
					return err
				}
				claimed = qItem
				exhausted = true
				return nil
			}

			// Claim: bump receive count, push visibility forward
			qItem.ReceiveCount++
			qItem.VisibleAt = now.Add(f.visibilityTimeout)

			data, err := json.Marshal(qItem)
			if err != nil {
				return err
			}
			if err := txn.Set(msgKey(queue, id), data); err != nil {
				return err
			}
			if err := txn.Delete(key); err != nil {
				return err
			}
			if err := txn.Set(indexKey(queue, qItem.VisibleAt, id), []byte{}); err != nil {
				return err
			}

			claimed = qItem
			return nil
		}
		return models.ErrNoMessage
	})
	if err != nil {
		return nil, err
	}

	id := claimed.ID
	if exhausted {
		// Already in the DLQ: the handles have nothing left to act on
		return &interfaces.Delivery{
			Item:         claimed.Item,
			DeadLettered: true,
			Ack:          func() error { return nil },
			Nack:         func(string) (bool, error) { return true, nil },
			Extend:       func(time.Duration) error { return nil },
		}, nil
	}
	return &interfaces.Delivery{
		Item: claimed.Item,
		Ack: func() error {
			return f.delete(queue, id)
		},
		Nack: func(reason string) (bool, error) {
			return f.nack(queue, id, reason)
		},
		Extend: func(d time.Duration) error {
			return f.extend(queue, id, d)
		},
	}, nil
}

// nack increments the item's attempt counter and either re-enqueues it
// after exponential backoff or, past the retry budget, moves it to the DLQ.
func (f *Fabric) nack(queue, id, reason string) (bool, error) {
	deadLettered := false
	err := f.db.Update(func(txn *badger.Txn) error {
		qItem, oldIdx, err := f.loadTxn(txn, queue, id)
		if err != nil {
			return err
		}

		qItem.Item.Attempt++
		if qItem.Item.Attempt > f.maxRetries {
			deadLettered = true
			if err := f.moveToDLQTxn(txn, queue, qItem, reason); err != nil {
				return err
			}
			return txn.Delete(oldIdx)
		}

		backoff := time.Duration(float64(f.backoffBase) * math.Pow(2, float64(qItem.Item.Attempt-1)))
		qItem.VisibleAt = time.Now().Add(backoff)
		qItem.ReceiveCount = 0

		data, err := json.Marshal(qItem)
		if err != nil {
			return err
		}
		if err := txn.Set(msgKey(queue, id), data); err != nil {
			return err
		}
		if err := txn.Delete(oldIdx); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Set(indexKey(queue, qItem.VisibleAt, id), []byte{})
	})
	return deadLettered, err
}

// extend pushes the visibility timeout forward (worker heartbeat)
func (f *Fabric) extend(queue, id string, d time.Duration) error {
	return f.db.Update(func(txn *badger.Txn) error {
		qItem, oldIdx, err := f.loadTxn(txn, queue, id)
		if err != nil {
			return err
		}
		qItem.VisibleAt = time.Now().Add(d)

		data, err := json.Marshal(qItem)
		if err != nil {
			return err
		}
		if err := txn.Set(msgKey(queue, id), data); err != nil {
			return err
		}
		if err := txn.Delete(oldIdx); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Set(indexKey(queue, qItem.VisibleAt, id), []byte{})
	})
}

// delete removes an item and its index entry (ack)
func (f *Fabric) delete(queue, id string) error {
	return f.db.Update(func(txn *badger.Txn) error {
		qItem, oldIdx, err := f.loadTxn(txn, queue, id)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil // Already gone
			}
			return err
		}
		_ = qItem
		if err := txn.Delete(oldIdx); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Delete(msgKey(queue, id))
	})
}

// loadTxn fetches an item and its current index key inside a transaction
func (f *Fabric) loadTxn(txn *badger.Txn, queue, id string) (*queuedItem, []byte, error) {
	msgItem, err := txn.Get(msgKey(queue, id))
	if err != nil {
		return nil, nil, err
	}
	var qItem queuedItem
	if err := msgItem.Value(func(val []byte) error {
		return json.Unmarshal(val, &qItem)
	}); err != nil {
		return nil, nil, err
	}
	return &qItem, indexKey(queue, qItem.VisibleAt, id), nil
}

// moveToDLQTxn writes the dead-letter record and removes the live item
func (f *Fabric) moveToDLQTxn(txn *badger.Txn, queue string, qItem *queuedItem, reason string) error {
	dl := models.DeadLetter{
		ID:       qItem.ID,
		Queue:    queue,
		Item:     qItem.Item,
		Reason:   reason,
		FailedAt: time.Now().Unix(),
	}
	data, err := json.Marshal(dl)
	if err != nil {
		return err
	}
	if err := txn.Set(dlqKey(queue, qItem.ID), data); err != nil {
		return err
	}
	if f.logger != nil {
		f.logger.Warn().
			Str("queue", queue).
			Str("artifact_id", qItem.Item.ArtifactID).
			Str("reason", reason).
			Msg("Work item dead-lettered")
	}
	return txn.Delete(msgKey(queue, qItem.ID))
}

// ListDeadLetters returns the contents of a queue's DLQ
func (f *Fabric) ListDeadLetters(ctx context.Context, queue string) ([]*models.DeadLetter, error) {
	var items []*models.DeadLetter
	err := f.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := dlqPrefix(queue)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var dl models.DeadLetter
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &dl)
			}); err != nil {
				return err
			}
			items = append(items, &dl)
		}
		return nil
	})
	return items, err
}

// RequeueDeadLetter moves a dead-lettered item back onto its queue with a
// reset attempt counter
func (f *Fabric) RequeueDeadLetter(ctx context.Context, queue, deadLetterID string) error {
	return f.db.Update(func(txn *badger.Txn) error {
		key := dlqKey(queue, deadLetterID)
		dlItem, err := txn.Get(key)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return models.ErrNotFound
			}
			return err
		}
		var dl models.DeadLetter
		if err := dlItem.Value(func(val []byte) error {
			return json.Unmarshal(val, &dl)
		}); err != nil {
			return err
		}

		dl.Item.Attempt = 0
		now := time.Now()
		qItem := queuedItem{
			ID:         dl.ID,
			Item:       dl.Item,
			EnqueuedAt: now,
			VisibleAt:  now,
		}
		data, err := json.Marshal(qItem)
		if err != nil {
			return err
		}
		if err := txn.Set(msgKey(queue, qItem.ID), data); err != nil {
			return err
		}
		if err := txn.Set(indexKey(queue, qItem.VisibleAt, qItem.ID), []byte{}); err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// PurgeExpiredDeadLetters removes DLQ entries older than retention
func (f *Fabric) PurgeExpiredDeadLetters(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention).Unix()
	purged := 0
	for _, queue := range WorkQueues {
		err := f.db.Update(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			prefix := dlqPrefix(queue)
			it := txn.NewIterator(opts)
			defer it.Close()
			var expired [][]byte
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				var dl models.DeadLetter
				if err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &dl)
				}); err != nil {
					return err
				}
				if dl.FailedAt < cutoff {
					expired = append(expired, it.Item().KeyCopy(nil))
				}
			}
			for _, key := range expired {
				if err := txn.Delete(key); err != nil {
					return err
				}
				purged++
			}
			return nil
		})
		if err != nil {
			return purged, err
		}
	}
	return purged, nil
}

// Close closes the fabric (the database is managed externally)
func (f *Fabric) Close() error {
	return nil
}

// Key helpers. The index key embeds the visibility timestamp zero-padded to
// 20 digits so lexicographic iteration yields time order.

func msgKey(queue, id string) []byte {
	return []byte(fmt.Sprintf("q:%s:msg:%s", queue, id))
}

func indexKey(queue string, visibleAt time.Time, id string) []byte {
	return []byte(fmt.Sprintf("q:%s:idx:%020d:%s", queue, visibleAt.UnixNano(), id))
}

func indexPrefix(queue string) []byte {
	return []byte(fmt.Sprintf("q:%s:idx:", queue))
}

func dlqKey(queue, id string) []byte {
	return []byte(fmt.Sprintf("q:%s:dlq:%s", queue, id))
}

func dlqPrefix(queue string) []byte {
	return []byte(fmt.Sprintf("q:%s:dlq:", queue))
}

func parseIndexKey(queue string, key []byte) (time.Time, string, error) {
	prefix := indexPrefix(queue)
	if len(key) <= len(prefix) {
		return time.Time{}, "", fmt.Errorf("invalid index key length")
	}
	suffix := string(key[len(prefix):])
	if len(suffix) < 21 { // 20 digits + colon
		return time.Time{}, "", fmt.Errorf("invalid index key suffix")
	}
	var ts int64
	if _, err := fmt.Sscanf(suffix[:20], "%d", &ts); err != nil {
		return time.Time{}, "", err
	}
	return time.Unix(0, ts), suffix[21:], nil
}
