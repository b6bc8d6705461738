// Package rtdb holds the latest analog readings shared between tasks.
package rtdb

import (
	"sync"
	"time"
)

// NumChannels is the number of analog channels tracked.
const NumChannels = 4

// Snapshot is a consistent copy of the database.
type Snapshot struct {
	// Generation counts updates since start, 0 means never updated.
	Generation uint64
	UpdatedAt  time.Time
	Raw        [NumChannels]uint16
	Scaled     [NumChannels]uint16
	// Written holds the generation which last wrote each channel.
	Written [NumChannels]uint64
}

// Stale tells whether channel ch missed the latest update.
func (s Snapshot) Stale(ch int) bool {
	return s.Written[ch] != s.Generation
}

// DB is the real-time database. The zero value is ready to use.
type DB struct {
	lock  sync.Mutex
	state Snapshot
	now   func() time.Time
}

// New creates an empty DB.
func New() *DB {
	return &DB{}
}

// WithClock overrides the timestamp source.
func (db *DB) WithClock(now func() time.Time) *DB {
	db.now = now
	return db
}

// Update stores raw readings for channels 0..len(raw)-1 and their scaled
// values as one generation. Extra values beyond NumChannels are ignored.
// Channels not covered keep their previous values.
func (db *DB) Update(raw []uint16) uint64 {
	if len(raw) > NumChannels {
		raw = raw[:NumChannels]
	}
	var ts time.Time
	if db.now != nil {
		ts = db.now()
	} else {
		ts = time.Now()
	}

	db.lock.Lock()
	defer db.lock.Unlock()
	db.state.Generation++
	db.state.UpdatedAt = ts
	for ch, val := range raw {
		db.state.Raw[ch] = val
		db.state.Scaled[ch] = Scale(val)
		db.state.Written[ch] = db.state.Generation
	}
	return db.state.Generation
}

// Snapshot returns a copy of all channels.
func (db *DB) Snapshot() Snapshot {
	db.lock.Lock()
	defer db.lock.Unlock()
	return db.state
}
