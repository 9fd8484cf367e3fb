// Copyright 2020-2022 The MGC Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mgc/pkg/project"

	bolt "go.etcd.io/bbolt"
	"golang.org/x/crypto/blake2b"
)

const metaBucket = "media-meta"

// MetaDB persists media probe results so reopening a project does
// not re-probe every asset.
type MetaDB struct {
	db *bolt.DB
}

// NewMetaDB opens the metadata database.
func NewMetaDB(ctx context.Context, dbPath string) (*MetaDB, error) {
	dbOpts := &bolt.Options{
		Timeout: 1 * time.Second,
	}
	db, err := bolt.Open(dbPath, 0o600, dbOpts)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w: %v", err, dbPath)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(metaBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create bucket: %w", err)
	}

	go func() {
		<-ctx.Done()
		db.Close()
	}()

	return &MetaDB{db: db}, nil
}

func metaKey(path string) []byte {
	sum := blake2b.Sum256([]byte(path))
	return sum[:]
}

// Get returns cached metadata for a path.
func (m *MetaDB) Get(path string) (*project.MediaMeta, bool) {
	var meta *project.MediaMeta
	m.db.View(func(tx *bolt.Tx) error { //nolint:errcheck
		value := tx.Bucket([]byte(metaBucket)).Get(metaKey(path))
		if value == nil {
			return nil
		}
		decoded := &project.MediaMeta{}
		if err := json.Unmarshal(value, decoded); err == nil {
			meta = decoded
		}
		return nil
	})
	return meta, meta != nil
}

// Set stores metadata for a path.
func (m *MetaDB) Set(path string, meta project.MediaMeta) error {
	value, _ := json.Marshal(meta)
	return m.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(metaBucket)).Put(metaKey(path), value)
	})
}
