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

package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mgc/pkg/log"

	"gopkg.in/yaml.v2"
)

// Manager handles storage interactions.
type Manager struct {
	path string

	// Spill directory entries are purged in name order when usage
	// reaches 99% of maxUsage.
	maxUsage int64

	usage     func(string) int64
	removeAll func(string) error

	log *log.Logger
}

// NewManager returns new manager.
func NewManager(path string, maxUsage int64, log *log.Logger) *Manager {
	return &Manager{
		path:     path,
		maxUsage: maxUsage,

		usage:     diskUsage,
		removeAll: os.RemoveAll,

		log: log,
	}
}

// DiskUsage in Bytes.
type DiskUsage struct {
	Used      int64
	Percent   int
	Max       int64
	Formatted string
}

const kilobyte float64 = 1000
const megabyte = kilobyte * 1000
const gigabyte = megabyte * 1000
const terabyte = gigabyte * 1000

func formatDiskUsage(used float64) string {
	switch {
	case used < 1000*megabyte:
		return fmt.Sprintf("%.0fMB", used/megabyte)
	case used < 10*gigabyte:
		return fmt.Sprintf("%.2fGB", used/gigabyte)
	case used < 100*gigabyte:
		return fmt.Sprintf("%.1fGB", used/gigabyte)
	case used < 1000*gigabyte:
		return fmt.Sprintf("%.0fGB", used/gigabyte)
	case used < 10*terabyte:
		return fmt.Sprintf("%.2fTB", used/terabyte)
	case used < 100*terabyte:
		return fmt.Sprintf("%.1fTB", used/terabyte)
	default:
		return fmt.Sprintf("%.0fTB", used/terabyte)
	}
}

func diskUsage(path string) int64 {
	var used int64
	filepath.Walk(path+"/", func(_ string, info os.FileInfo, err error) error { //nolint:errcheck
		if info != nil && !info.IsDir() {
			used += info.Size()
		}
		return nil
	})
	return used
}

// Usage returns DiskUsage.
func (s *Manager) Usage() DiskUsage {
	used := s.usage(s.path)

	var usedPercent int64
	if used != 0 && s.maxUsage != 0 {
		usedPercent = (used * 100) / s.maxUsage
	}

	return DiskUsage{
		Used:      used,
		Percent:   int(usedPercent),
		Max:       s.maxUsage,
		Formatted: formatDiskUsage(float64(used)),
	}
}

// purge removes the first entry, by name, in the spill
// directory if disk usage is at or above 99%.
func (s *Manager) purge() error {
	if s.maxUsage == 0 {
		return nil
	}
	if s.Usage().Percent < 99 {
		return nil
	}

	list, err := os.ReadDir(s.SpillDir())
	if err != nil {
		return fmt.Errorf("could not read directory %v: %w", s.SpillDir(), err)
	}
	if len(list) == 0 {
		return nil
	}

	oldest := list[0].Name()
	if err := s.removeAll(filepath.Join(s.SpillDir(), oldest)); err != nil {
		return fmt.Errorf("could not remove directory: %w", err)
	}
	return nil
}

// SpillDir returns path to the decoded-media spill diectory.
func (s *Manager) SpillDir() string {
	return filepath.Join(s.path, "spill")
}

// PurgeLoop runs purge on an interval until context is canceled.
func (s *Manager) PurgeLoop(ctx context.Context, duration time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(duration):
			if err := s.purge(); err != nil {
				s.log.Error().Src("storage").Msgf("failed to purge storage: %v", err)
			}
		}
	}
}

// ConfigEnv stores system configuration.
type ConfigEnv struct {
	FFmpegBin string `yaml:"ffmpegBin"`

	StorageDir string `yaml:"storageDir"`
	FontDir    string `yaml:"fontDir"`

	SampleRate   int   `yaml:"sampleRate"`
	MaxDiskUsage int64 `yaml:"maxDiskUsage"`

	HomeDir   string `yaml:"homeDir"`
	ConfigDir string
}

// NewConfigEnv return new environment configuration.
func NewConfigEnv(envPath string, envYAML []byte) (*ConfigEnv, error) {
	var env ConfigEnv

	if err := yaml.Unmarshal(envYAML, &env); err != nil {
		return nil, fmt.Errorf("could not unmarshal env.yaml: %w", err)
	}

	env.ConfigDir = filepath.Dir(envPath)

	if env.FFmpegBin == "" {
		env.FFmpegBin = "/usr/bin/ffmpeg"
	}
	if env.HomeDir == "" {
		env.HomeDir = filepath.Dir(env.ConfigDir)
	}
	if env.StorageDir == "" {
		env.StorageDir = filepath.Join(env.HomeDir, "storage")
	}
	if env.FontDir == "" {
		env.FontDir = "/usr/share/fonts"
	}
	if env.SampleRate == 0 {
		env.SampleRate = 48000
	}

	if !filepath.IsAbs(env.FFmpegBin) {
		return nil, fmt.Errorf("ffmpegBin '%v' is not a absolute path", env.FFmpegBin)
	}
	if !filepath.IsAbs(env.HomeDir) {
		return nil, fmt.Errorf("homeDir '%v' is not a absolute path", env.HomeDir)
	}
	if !filepath.IsAbs(env.StorageDir) {
		return nil, fmt.Errorf("storageDir '%v' is not a absolute path", env.StorageDir)
	}
	if !filepath.IsAbs(env.FontDir) {
		return nil, fmt.Errorf("fontDir '%v' is not a absolute path", env.FontDir)
	}

	return &env, nil
}

// PrepareEnvironment prepares directories.
func (env *ConfigEnv) PrepareEnvironment() error {
	spillDir := filepath.Join(env.StorageDir, "spill")

	// Reset temporary directories.
	os.RemoveAll(spillDir)
	if err := os.MkdirAll(spillDir, 0o700); err != nil && !os.IsExist(err) {
		return fmt.Errorf("could not create spill directory: %v: %w", spillDir, err)
	}
	return nil
}

// LogDBPath path to the log database.
func (env *ConfigEnv) LogDBPath() string {
	return filepath.Join(env.StorageDir, "logs.db")
}

// MetaDBPath path to the media-metadata database.
func (env *ConfigEnv) MetaDBPath() string {
	return filepath.Join(env.StorageDir, "media.db")
}
