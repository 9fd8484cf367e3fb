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

package ffmpeg

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"math"
	"strconv"
)

// ExtractFrame decodes a single video frame by index into an RGBA
// buffer. Color-space hints are passed through to the decoder when
// set.
func (f *FFMPEG) ExtractFrame(
	path string,
	frameIndex int64,
	w, h int,
	inColorSpace, outColorSpace string,
) (*image.RGBA, error) {
	if frameIndex < 0 {
		return nil, fmt.Errorf("negative frame index: %v", frameIndex)
	}

	filter := "select=eq(n\\," + strconv.FormatInt(frameIndex, 10) + ")"
	if inColorSpace != "" && outColorSpace != "" {
		filter += ",colorspace=all=" + outColorSpace + ":iall=" + inColorSpace
	}

	cmd := f.command(
		"-loglevel", "error",
		"-i", path,
		"-vf", filter,
		"-vframes", "1",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("decode frame %v: %w: %s", frameIndex, err, stderr.String())
	}

	want := w * h * 4
	if stdout.Len() < want {
		return nil, fmt.Errorf("short frame read: got %v want %v", stdout.Len(), want)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	copy(img.Pix, stdout.Bytes()[:want])
	return img, nil
}

// DecodeAudio decodes a full audio stream to interleaved f32
// samples at the source sample rate and channel count.
func (f *FFMPEG) DecodeAudio(path string) (samples []float32, channels, sampleRate int, err error) {
	probe, err := f.Probe(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("probe audio: %w", err)
	}
	channels = probe.Channels
	sampleRate = probe.SampleRate
	if channels == 0 || sampleRate == 0 {
		return nil, 0, 0, fmt.Errorf("no audio stream in %v", path)
	}

	cmd := f.command(
		"-loglevel", "error",
		"-i", path,
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, 0, 0, fmt.Errorf("decode audio: %w: %s", err, stderr.String())
	}

	raw := stdout.Bytes()
	samples = make([]float32, len(raw)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		samples[i] = math.Float32frombits(bits)
	}
	return samples, channels, sampleRate, nil
}
