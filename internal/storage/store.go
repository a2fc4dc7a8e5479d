package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	titlesBucket  = []byte("titles")
	historyBucket = []byte("history")
)

// ErrNotFound is returned when no record exists for a source.
var ErrNotFound = errors.New("title not found")

type Store struct {
	db *bolt.DB

	mu        sync.Mutex
	observers map[int]func(*TitleRecord)
	nextID    int
}

func NewStore(dbPath string, timeout time.Duration) (*Store, error) {
	if timeout <= 0 {
		timeout = 1 * time.Second
	}
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{titlesBucket, historyBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db, observers: make(map[int]func(*TitleRecord))}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Subscribe registers fn to be called after every successful SaveTitle.
func (s *Store) Subscribe(fn func(*TitleRecord)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}

// SaveTitle stores rec as the current record of its source. A history
// entry is appended when the title differs from the stored one.
func (s *Store) SaveTitle(rec *TitleRecord) error {
	if rec.SourceURL == "" {
		return fmt.Errorf("saving title: empty source URL")
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		titles := tx.Bucket(titlesBucket)

		changed := true
		if prev := titles.Get([]byte(rec.SourceURL)); prev != nil {
			var old TitleRecord
			if err := json.Unmarshal(prev, &old); err == nil {
				changed = old.Title != rec.Title
			}
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := titles.Put([]byte(rec.SourceURL), data); err != nil {
			return err
		}

		if !changed || rec.Title == "" {
			return nil
		}
		return appendHistory(tx.Bucket(historyBucket), rec)
	})
	if err != nil {
		return fmt.Errorf("saving title: %w", err)
	}

	s.publish(rec)
	return nil
}

func appendHistory(b *bolt.Bucket, rec *TitleRecord) error {
	seq, err := b.NextSequence()
	if err != nil {
		return err
	}
	fetched := rec.LastFetched
	if fetched.IsZero() {
		fetched = time.Now()
	}
	entry := HistoryEntry{
		ID:          seq,
		SourceURL:   rec.SourceURL,
		Title:       rec.Title,
		Description: rec.Description,
		FetchedAt:   fetched,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return b.Put(itob(seq), data)
}

func (s *Store) publish(rec *TitleRecord) {
	s.mu.Lock()
	fns := make([]func(*TitleRecord), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		cp := *rec
		fn(&cp)
	}
}

func (s *Store) GetTitle(sourceURL string) (*TitleRecord, error) {
	var rec TitleRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(titlesBucket).Get([]byte(sourceURL))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// History returns entries newest first. An empty sourceURL matches every
// source; limit <= 0 means no limit.
func (s *Store) History(sourceURL string, limit int) ([]*HistoryEntry, error) {
	var entries []*HistoryEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(historyBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var e HistoryEntry
			if err := json.Unmarshal(v, &e); err != nil {
				continue
			}
			if sourceURL != "" && e.SourceURL != sourceURL {
				continue
			}
			entries = append(entries, &e)
			if limit > 0 && len(entries) >= limit {
				return nil
			}
		}
		return nil
	})
	return entries, err
}

// Sources lists every source URL with a stored title, sorted.
func (s *Store) Sources() ([]string, error) {
	var urls []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(titlesBucket).ForEach(func(k, _ []byte) error {
			urls = append(urls, string(k))
			return nil
		})
	})
	sort.Strings(urls)
	return urls, err
}

// DeleteSource removes the current record and the history of a source.
func (s *Store) DeleteSource(sourceURL string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(titlesBucket).Delete([]byte(sourceURL)); err != nil {
			return err
		}

		history := tx.Bucket(historyBucket)
		var stale [][]byte
		err := history.ForEach(func(k, v []byte) error {
			var e HistoryEntry
			if err := json.Unmarshal(v, &e); err == nil && e.SourceURL == sourceURL {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := history.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
