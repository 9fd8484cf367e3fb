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

package shape

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
)

// Typeface is a parsed font.
type Typeface struct {
	Family string

	font *sfnt.Font
	mu   sync.Mutex
	buf  sfnt.Buffer
}

// FontCache resolves family names to typefaces from a font
// directory, falling back to the built-in legacy face.
type FontCache struct {
	fontDir string

	mu    sync.Mutex
	faces map[string]*Typeface
}

// NewFontCache returns a font cache over a directory.
func NewFontCache(fontDir string) *FontCache {
	return &FontCache{
		fontDir: fontDir,
		faces:   map[string]*Typeface{},
	}
}

// Typeface resolves a family name. Unknown families, and the
// empty family, resolve to the fallback face.
func (c *FontCache) Typeface(family string) *Typeface {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := strings.ToLower(family)
	if face, exist := c.faces[key]; exist {
		return face
	}

	face, err := c.load(family)
	if err != nil {
		face = Fallback()
	}
	c.faces[key] = face
	return face
}

func (c *FontCache) load(family string) (*Typeface, error) {
	if family == "" {
		return nil, fmt.Errorf("empty family")
	}

	var match string
	target := normalizeFamily(family)
	err := filepath.WalkDir(c.fontDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || match != "" {
			return nil //nolint:nilerr
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".ttf" && ext != ".otf" {
			return nil
		}
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if normalizeFamily(stem) == target {
			match = path
		}
		return nil
	})
	if err != nil || match == "" {
		return nil, fmt.Errorf("font not found: %v", family)
	}

	data, err := os.ReadFile(match)
	if err != nil {
		return nil, fmt.Errorf("could not read font: %w", err)
	}
	parsed, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("could not parse font: %v: %w", match, err)
	}

	return &Typeface{Family: family, font: parsed}, nil
}

func normalizeFamily(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "")
	name = strings.ReplaceAll(name, "-", "")
	name = strings.ReplaceAll(name, "_", "")
	return name
}

var (
	fallbackOnce sync.Once
	fallbackFace *Typeface
)

// Fallback returns the built-in legacy typeface.
func Fallback() *Typeface {
	fallbackOnce.Do(func() {
		parsed, err := sfnt.Parse(goregular.TTF)
		if err != nil {
			// The embedded font is known-good.
			panic(fmt.Sprintf("parse fallback font: %v", err))
		}
		fallbackFace = &Typeface{Family: "Go Regular", font: parsed}
	})
	return fallbackFace
}
