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

package project

import (
	"encoding/json"
	"errors"
	"fmt"

	"mgc/pkg/property"
)

// ID is a UUID string.
type ID = string

// Lookup errors.
var (
	ErrCompositionNotExist = errors.New("composition does not exist")
	ErrNodeNotExist        = errors.New("node does not exist")
	ErrConnectionNotExist  = errors.New("connection does not exist")
	ErrAssetNotExist       = errors.New("asset does not exist")
)

// Project is the root document: compositions, nodes,
// connections, assets and the export configuration.
type Project struct {
	Name         string         `json:"name"`
	Compositions []*Composition `json:"compositions"`
	Nodes        map[ID]*Node   `json:"nodes"`
	Connections  []*Connection  `json:"connections"`
	Assets       []*Asset       `json:"assets"`
	Export       ExportConfig   `json:"export"`
}

// Composition is a named timeline rectangle with a root track.
type Composition struct {
	ID              ID             `json:"id"`
	Name            string         `json:"name"`
	Width           int            `json:"width"`
	Height          int            `json:"height"`
	FPS             float64        `json:"fps"`
	Duration        float64        `json:"duration"`
	BackgroundColor property.Color `json:"background_color"`
	ColorProfile    string         `json:"color_profile,omitempty"`
	WorkAreaIn      int64          `json:"work_area_in"`
	WorkAreaOut     int64          `json:"work_area_out"`
	RootTrackID     ID             `json:"root_track_id"`
}

// UnmarshalJSON decodes a composition, filling documented defaults.
func (c *Composition) UnmarshalJSON(data []byte) error {
	type alias Composition
	if err := json.Unmarshal(data, (*alias)(c)); err != nil {
		return err
	}
	if c.FPS == 0 {
		c.FPS = 30
	}
	return nil
}

// TotalFrames frame count of the composition.
func (c *Composition) TotalFrames() int64 {
	return int64(c.Duration * c.FPS)
}

// AssetKind media kind of an asset.
type AssetKind string

// Asset kinds.
const (
	AssetVideo AssetKind = "video"
	AssetImage AssetKind = "image"
	AssetAudio AssetKind = "audio"
)

// MediaMeta cached media metadata.
type MediaMeta struct {
	Duration float64 `json:"duration"`
	FPS      float64 `json:"fps"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
}

// Asset references a media file.
type Asset struct {
	ID   ID         `json:"id"`
	Kind AssetKind  `json:"kind"`
	Path string     `json:"path"`
	Meta *MediaMeta `json:"meta,omitempty"`
}

// ExportConfig export settings.
type ExportConfig struct {
	Container   string `json:"container"`
	Codec       string `json:"codec"`
	PixelFormat string `json:"pixel_format"`

	Width  int     `json:"width"`
	Height int     `json:"height"`
	FPS    float64 `json:"fps"`

	VideoBitrate string `json:"video_bitrate,omitempty"`

	AudioCodec      string `json:"audio_codec,omitempty"`
	AudioBitrate    string `json:"audio_bitrate,omitempty"`
	AudioChannels   int    `json:"audio_channels,omitempty"`
	AudioSampleRate int    `json:"audio_sample_rate,omitempty"`

	CRF    int    `json:"crf,omitempty"`
	Preset string `json:"preset,omitempty"`

	FFmpegPath string            `json:"ffmpeg_path,omitempty"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// IsVideo reports whether the config routes to the video exporter.
// The `png` and `apng` containers route to the PNG exporter.
func (c ExportConfig) IsVideo() bool {
	return c.Container != "png" && c.Container != "apng"
}

// NewProject returns an empty project.
func NewProject(name string) *Project {
	return &Project{
		Name:  name,
		Nodes: map[ID]*Node{},
	}
}

// Composition looks up a composition by id.
func (p *Project) Composition(id ID) (*Composition, error) {
	for _, c := range p.Compositions {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrCompositionNotExist, id)
}

// Node looks up a node by id.
func (p *Project) Node(id ID) (*Node, error) {
	if n, exist := p.Nodes[id]; exist {
		return n, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrNodeNotExist, id)
}

// Asset looks up an asset by id.
func (p *Project) Asset(id ID) (*Asset, error) {
	for _, a := range p.Assets {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrAssetNotExist, id)
}

// Connection looks up a connection by id.
func (p *Project) Connection(id ID) (*Connection, error) {
	for _, c := range p.Connections {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrConnectionNotExist, id)
}

// ConnectionTo returns the at-most-one connection into an input pin.
func (p *Project) ConnectionTo(to Endpoint) *Connection {
	for _, c := range p.Connections {
		if c.To == to {
			return c
		}
	}
	return nil
}

// ConnectionsFrom returns all connections out of an output pin.
func (p *Project) ConnectionsFrom(from Endpoint) []*Connection {
	var out []*Connection
	for _, c := range p.Connections {
		if c.From == from {
			out = append(out, c)
		}
	}
	return out
}

// Save serializes the project as JSON.
func (p *Project) Save() ([]byte, error) {
	return json.MarshalIndent(p, "", "    ")
}

// Load deserializes a project from JSON.
func Load(data []byte) (*Project, error) {
	p := &Project{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("could not unmarshal project: %w", err)
	}
	if p.Nodes == nil {
		p.Nodes = map[ID]*Node{}
	}
	// The node map key is authoritative.
	for id, n := range p.Nodes {
		n.ID = id
	}
	return p, nil
}

// Clone returns a deep copy used as an immutable
// evaluation snapshot.
func (p *Project) Clone() *Project {
	c := &Project{
		Name:   p.Name,
		Export: p.Export,
		Nodes:  make(map[ID]*Node, len(p.Nodes)),
	}
	for _, comp := range p.Compositions {
		compCopy := *comp
		c.Compositions = append(c.Compositions, &compCopy)
	}
	for id, n := range p.Nodes {
		c.Nodes[id] = n.Clone()
	}
	for _, conn := range p.Connections {
		connCopy := *conn
		c.Connections = append(c.Connections, &connCopy)
	}
	for _, a := range p.Assets {
		aCopy := *a
		if a.Meta != nil {
			meta := *a.Meta
			aCopy.Meta = &meta
		}
		c.Assets = append(c.Assets, &aCopy)
	}
	if p.Export.Parameters != nil {
		c.Export.Parameters = make(map[string]string, len(p.Export.Parameters))
		for k, v := range p.Export.Parameters {
			c.Export.Parameters[k] = v
		}
	}
	return c
}
