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

// Package ffmock provides process mocks for testing.
package ffmock

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"time"

	"mgc/pkg/ffmpeg"
)

// MockProcessConfig ProcessMocker config.
type MockProcessConfig struct {
	ReturnErr bool
	Sleep     time.Duration
	OnStart   func()
}

// NewProcessMocker creates process mocker from config.
func NewProcessMocker(c MockProcessConfig) ffmpeg.NewProcessFunc {
	return func(*exec.Cmd) ffmpeg.Process {
		return &mockProcess{c: c}
	}
}

type mockProcess struct {
	c MockProcessConfig
}

func (m *mockProcess) Start(ctx context.Context) error {
	if m.c.OnStart != nil {
		m.c.OnStart()
	}
	if m.c.Sleep != 0 {
		select {
		case <-time.After(m.c.Sleep):
		case <-ctx.Done():
		}
	}
	if m.c.ReturnErr {
		return errors.New("mock")
	}
	return nil
}

func (m *mockProcess) Timeout(time.Duration) ffmpeg.Process    { return m }
func (m *mockProcess) Prefix(string) ffmpeg.Process            { return m }
func (m *mockProcess) StdoutLogger(func(string)) ffmpeg.Process { return m }
func (m *mockProcess) StderrLogger(func(string)) ffmpeg.Process { return m }
func (m *mockProcess) Stdin(io.Reader) ffmpeg.Process           { return m }

// NewProcess sleeps for 15ms before returning.
var NewProcess = NewProcessMocker(MockProcessConfig{
	Sleep: 15 * time.Millisecond,
})

// NewProcessNil returns nil.
var NewProcessNil = NewProcessMocker(MockProcessConfig{})

// NewProcessErr returns an error.
var NewProcessErr = NewProcessMocker(MockProcessConfig{
	ReturnErr: true,
})
