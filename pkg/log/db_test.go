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

package log

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) (*DB, context.CancelFunc) {
	dbPath := filepath.Join(t.TempDir(), "logs.db")

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}

	logDB := NewDB(dbPath, wg)
	err := logDB.Init(ctx)
	require.NoError(t, err)

	cancel2 := func() {
		cancel()
		wg.Wait()
	}
	return logDB, cancel2
}

func TestDB(t *testing.T) {
	msg1 := Log{
		Level: LevelError,
		Time:  4000,
		Src:   "s1",
		Comp:  "c1",
		Msg:   "msg1",
	}
	msg2 := Log{
		Level: LevelWarning,
		Time:  3000,
		Src:   "s1",
		Msg:   "msg2",
	}
	msg3 := Log{
		Level: LevelInfo,
		Time:  2000,
		Src:   "s2",
		Comp:  "c2",
		Msg:   "msg3",
	}

	populate := func(t *testing.T, logDB *DB) {
		require.NoError(t, logDB.saveLog(msg1))
		require.NoError(t, logDB.saveLog(msg2))
		require.NoError(t, logDB.saveLog(msg3))
	}

	cases := []struct {
		name     string
		input    Query
		expected []Log
	}{
		{
			name: "singleLevel",
			input: Query{
				Levels:  []Level{LevelWarning},
				Sources: []string{"s1"},
			},
			expected: []Log{msg2},
		},
		{
			name: "multipleLevels",
			input: Query{
				Levels:  []Level{LevelError, LevelWarning},
				Sources: []string{"s1"},
			},
			expected: []Log{msg1, msg2},
		},
		{
			name: "multipleSources",
			input: Query{
				Levels:  []Level{LevelError, LevelInfo},
				Sources: []string{"s1", "s2"},
			},
			expected: []Log{msg1, msg3},
		},
		{
			name: "singleComp",
			input: Query{
				Levels:  []Level{LevelError, LevelInfo},
				Sources: []string{"s1", "s2"},
				Comps:   []string{"c1"},
			},
			expected: []Log{msg1},
		},
		{
			name:     "all",
			input:    Query{},
			expected: []Log{msg1, msg2, msg3},
		},
		{
			name: "beforeTime",
			input: Query{
				Time: 3500,
			},
			expected: []Log{msg2, msg3},
		},
		{
			name: "limit",
			input: Query{
				Limit: 2,
			},
			expected: []Log{msg1, msg2},
		},
		{
			name: "noMatch",
			input: Query{
				Sources: []string{"x"},
			},
			expected: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			logDB, cancel := newTestDB(t)
			defer cancel()
			populate(t, logDB)

			logs, err := logDB.Query(tc.input)
			require.NoError(t, err)
			require.Equal(t, tc.expected, *logs)
		})
	}

	t.Run("maxKeys", func(t *testing.T) {
		logDB, cancel := newTestDB(t)
		defer cancel()
		logDB.maxKeys = 2

		populate(t, logDB)

		logs, err := logDB.Query(Query{})
		require.NoError(t, err)
		require.Equal(t, 2, len(*logs))
	})
}
