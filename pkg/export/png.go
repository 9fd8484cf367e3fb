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

package export

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// PNGExporter writes one PNG file per frame.
type PNGExporter struct{}

// SaveFrame implements Exporter.
func (e *PNGExporter) SaveFrame(frameIndex int64, path string, img *image.RGBA) error {
	path += ".png"

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil && !os.IsExist(err) {
		return fmt.Errorf("could not create output directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create %v: %w", path, err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("could not encode %v: %w", path, err)
	}
	return file.Close()
}

// Finish implements Exporter.
func (e *PNGExporter) Finish() error { return nil }
