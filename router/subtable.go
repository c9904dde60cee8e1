package router

import (
	"strings"
	"sync"

	"github.com/tidwall/buntdb"
)

// subtable is the broker's topic -> subscriber index.
// buntdb's ordered in-memory keyspace gives a cheap "all keys with this
// topic prefix" scan for subscribersOf without hand-rolling a second
// index structure; the actual *conn objects (not serializable, so they
// can't live inside buntdb's values) are kept in a parallel map guarded
// by the same mutex.
type subtable struct {
	db *buntdb.DB

	mu    sync.RWMutex
	conns map[string]*conn // connID -> conn
}

func subKey(topic, connID string) string {
	return topic + "\x00" + connID
}

func newSubtable() *subtable {
	db, err := buntdb.Open(":memory:")
	if err != nil {
		// buntdb's in-memory mode has no I/O to fail on; a non-nil error
		// here means the process is unusable for reasons outside this
		// package's control.
		panic("router: buntdb in-memory open failed: " + err.Error())
	}
	return &subtable{db: db, conns: make(map[string]*conn)}
}

func (s *subtable) addConn(c *conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[c.id] = c
}

func (s *subtable) subscribe(topic, connID string) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(subKey(topic, connID), connID, nil)
		return err
	})
}

func (s *subtable) unsubscribe(topic, connID string) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(subKey(topic, connID))
		if err == buntdb.ErrNotFound {
			return nil
		}
		return err
	})
}

// subscribersOf returns the live *conn for every subscriber of topic.
func (s *subtable) subscribersOf(topic string) []*conn {
	prefix := topic + "\x00"
	var ids []string
	s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendGreaterOrEqual("", prefix, func(key, value string) bool {
			if !strings.HasPrefix(key, prefix) {
				return false
			}
			ids = append(ids, value)
			return true
		})
	})

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*conn, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.conns[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// removeConn drops every subscription and the conn entry for connID,
// run when a connection closes so stale entries don't leak.
func (s *subtable) removeConn(connID string) {
	s.mu.Lock()
	delete(s.conns, connID)
	s.mu.Unlock()

	var stale []string
	s.db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend("", func(key, value string) bool {
			if value == connID {
				stale = append(stale, key)
			}
			return true
		})
	})
	if len(stale) == 0 {
		return
	}
	s.db.Update(func(tx *buntdb.Tx) error {
		for _, k := range stale {
			tx.Delete(k)
		}
		return nil
	})
}

// topicCounts reports the live subscriber count per topic, used by the
// admin /stats endpoint.
func (s *subtable) topicCounts() map[string]int {
	counts := make(map[string]int)
	s.db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend("", func(key, _ string) bool {
			topic := key[:strings.IndexByte(key, 0)]
			counts[topic]++
			return true
		})
	})
	return counts
}

// clientIDs reports every connected conn's self-reported ClientID,
// keyed by the broker's own connection id, for the admin /stats
// endpoint. A conn that hasn't subscribed yet (and so never sent a
// control payload) is omitted rather than reported with an empty ID.
func (s *subtable) clientIDs() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.conns))
	for connID, c := range s.conns {
		if id := c.clientIDSnapshot(); id != "" {
			out[connID] = id
		}
	}
	return out
}
