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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) (context.Context, context.CancelFunc, *Logger) {
	logger := NewLogger()

	ctx, cancel := context.WithCancel(context.Background())
	err := logger.Start(ctx)
	require.NoError(t, err)

	return ctx, cancel, logger
}

func TestLogger(t *testing.T) {
	t.Run("msg", func(t *testing.T) {
		_, cancel, logger := newTestLogger(t)
		defer cancel()

		feed, cancel2 := logger.Subscribe()
		defer cancel2()

		go logger.Info().Src("eval").Comp("c1").Msg("test")

		actual := <-feed
		require.Equal(t, LevelInfo, actual.Level)
		require.Equal(t, "eval", actual.Src)
		require.Equal(t, "c1", actual.Comp)
		require.Equal(t, "test", actual.Msg)
	})
	t.Run("msgf", func(t *testing.T) {
		_, cancel, logger := newTestLogger(t)
		defer cancel()

		feed, cancel2 := logger.Subscribe()
		defer cancel2()

		go logger.Error().Src("export").Msgf("%v2", "test")

		actual := <-feed
		require.Equal(t, LevelError, actual.Level)
		require.Equal(t, "test2", actual.Msg)
	})
	t.Run("fanout", func(t *testing.T) {
		_, cancel, logger := newTestLogger(t)
		defer cancel()

		feed1, cancel1 := logger.Subscribe()
		defer cancel1()
		feed2, cancel2 := logger.Subscribe()
		defer cancel2()

		go logger.Warn().Msg("a")

		require.Equal(t, "a", (<-feed1).Msg)
		require.Equal(t, "a", (<-feed2).Msg)
	})
	t.Run("unsub", func(t *testing.T) {
		_, cancel, logger := newTestLogger(t)
		defer cancel()

		feed, cancel2 := logger.Subscribe()
		cancel2()

		go logger.Info().Msg("a")

		_, ok := <-feed
		require.False(t, ok, "feed should be closed")
	})
	t.Run("time", func(t *testing.T) {
		_, cancel, logger := newTestLogger(t)
		defer cancel()

		feed, cancel2 := logger.Subscribe()
		defer cancel2()

		go logger.Debug().Time(time.Unix(0, 4000000)).Msg("")

		require.Equal(t, UnixMillisecond(4000), (<-feed).Time)
	})
}

func TestFFmpegLevel(t *testing.T) {
	cases := []struct {
		input    string
		expected Level
	}{
		{"error", LevelError},
		{"fatal", LevelError},
		{"warning", LevelWarning},
		{"info", LevelInfo},
		{"debug", LevelDebug},
		{"", LevelDebug},
	}
	logger := NewMockLogger()
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			require.Equal(t, tc.expected, logger.FFmpegLevel(tc.input).level)
		})
	}
}
