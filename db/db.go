package db

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"scenariochat/models"
)

type DB struct {
	badgerDB *badger.DB
	msgSeq   atomic.Uint64
}

func New(dbPath string) (*DB, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Disable badger logging for cleaner output

	badgerDB, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &DB{badgerDB: badgerDB}, nil
}

func (d *DB) Close() error {
	return d.badgerDB.Close()
}

func threadKey(userID, threadID string) []byte {
	return []byte(fmt.Sprintf("thread:%s:%s", userID, threadID))
}

// nextMessageKey orders messages by arrival time. The sequence suffix keeps
// two appends landing in the same nanosecond from overwriting each other.
func (d *DB) nextMessageKey(threadID string, ts int64) []byte {
	return []byte(fmt.Sprintf("msg:%s:%020d:%012d", threadID, ts, d.msgSeq.Add(1)))
}

// EnsureDefaultThread creates the user's default thread if it is missing.
func (d *DB) EnsureDefaultThread(userID string) error {
	existing, err := d.GetThread(userID, models.DefaultThreadID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	now := time.Now().Format(time.RFC3339)
	return d.StoreThread(&models.Thread{
		ID:        models.DefaultThreadID,
		UserID:    userID,
		Title:     "New chat",
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (d *DB) StoreThread(t *models.Thread) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return d.badgerDB.Update(func(txn *badger.Txn) error {
		return txn.Set(threadKey(t.UserID, t.ID), data)
	})
}

func (d *DB) GetThread(userID, threadID string) (*models.Thread, error) {
	var t *models.Thread
	err := d.badgerDB.View(func(txn *badger.Txn) error {
		item, err := txn.Get(threadKey(userID, threadID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var thread models.Thread
			if err := json.Unmarshal(val, &thread); err != nil {
				return err
			}
			t = &thread
			return nil
		})
	})
	return t, err
}

func (d *DB) ListThreads(userID string) ([]models.Thread, error) {
	var threads []models.Thread
	err := d.badgerDB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(fmt.Sprintf("thread:%s:", userID))
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var t models.Thread
				if err := json.Unmarshal(val, &t); err != nil {
					return err
				}
				threads = append(threads, t)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return threads, err
}

// DeleteThread removes a thread and all of its messages.
func (d *DB) DeleteThread(userID, threadID string) error {
	return d.badgerDB.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(threadKey(userID, threadID)); err != nil {
			return err
		}
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(fmt.Sprintf("msg:%s:", threadID))
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)

		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// AppendMessage stores one turn message. Keys embed a nanosecond timestamp so
// iteration returns messages in arrival order.
func (d *DB) AppendMessage(threadID string, m models.Message) error {
	if m.Timestamp == "" {
		m.Timestamp = time.Now().Format(time.RFC3339)
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return d.badgerDB.Update(func(txn *badger.Txn) error {
		return txn.Set(d.nextMessageKey(threadID, time.Now().UnixNano()), data)
	})
}

func (d *DB) GetMessages(threadID string) ([]models.Message, error) {
	var messages []models.Message
	err := d.badgerDB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(fmt.Sprintf("msg:%s:", threadID))
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var m models.Message
				if err := json.Unmarshal(val, &m); err != nil {
					return err
				}
				messages = append(messages, m)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return messages, err
}

// StoreProvenance records a file's pre-edit content keyed by query id.
func (d *DB) StoreProvenance(entry models.ProvenanceEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return d.badgerDB.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(fmt.Sprintf("prov:%s", entry.QueryID)), data)
	})
}

func (d *DB) GetProvenance(queryID string) (*models.ProvenanceEntry, error) {
	var entry *models.ProvenanceEntry
	err := d.badgerDB.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(fmt.Sprintf("prov:%s", queryID)))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var e models.ProvenanceEntry
			if err := json.Unmarshal(val, &e); err != nil {
				return err
			}
			entry = &e
			return nil
		})
	})
	return entry, err
}

func groupKey(scenarioID, groupID string) []byte {
	return []byte(fmt.Sprintf("group:%s:%s", scenarioID, groupID))
}

// StoreQueryFileGroup persists a query/file grouping. Groups with no files
// are rejected: an empty group must never exist.
func (d *DB) StoreQueryFileGroup(g *models.QueryFileGroup) error {
	if len(g.Files) == 0 {
		return fmt.Errorf("refusing to store query group %s with no files", g.ID)
	}
	data, err := json.Marshal(g)
	if err != nil {
		return err
	}
	return d.badgerDB.Update(func(txn *badger.Txn) error {
		return txn.Set(groupKey(g.ScenarioID, g.ID), data)
	})
}

func (d *DB) ListQueryFileGroups(scenarioID string) ([]models.QueryFileGroup, error) {
	var groups []models.QueryFileGroup
	err := d.badgerDB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(fmt.Sprintf("group:%s:", scenarioID))
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var g models.QueryFileGroup
				if err := json.Unmarshal(val, &g); err != nil {
					return err
				}
				groups = append(groups, g)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return groups, err
}

// RemoveFileFromGroups drops a filename from every group of the scenario and
// deletes groups whose file set becomes empty.
func (d *DB) RemoveFileFromGroups(scenarioID, filename string) error {
	groups, err := d.ListQueryFileGroups(scenarioID)
	if err != nil {
		return err
	}
	return d.badgerDB.Update(func(txn *badger.Txn) error {
		for _, g := range groups {
			var kept []string
			for _, f := range g.Files {
				if !strings.EqualFold(f, filename) {
					kept = append(kept, f)
				}
			}
			if len(kept) == len(g.Files) {
				continue
			}
			if len(kept) == 0 {
				if err := txn.Delete(groupKey(scenarioID, g.ID)); err != nil {
					return err
				}
				continue
			}
			g.Files = kept
			data, err := json.Marshal(g)
			if err != nil {
				return err
			}
			if err := txn.Set(groupKey(scenarioID, g.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}
