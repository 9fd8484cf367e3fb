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
	"context"
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"mgc/pkg/ffmpeg"
	"mgc/pkg/log"
	"mgc/pkg/project"
)

// FFmpegExporter pipes rawvideo frames into an encoder process.
// Frames must arrive in order, video jobs run with one render
// worker.
type FFmpegExporter struct {
	cfg        project.ExportConfig
	outputPath string
	bin        string
	newProcess ffmpeg.NewProcessFunc
	log        *log.Logger

	width  int
	height int

	audioPath string

	pipe    io.WriteCloser
	procErr chan error
	cancel  context.CancelFunc
	started bool
}

// NewFFmpegExporter returns a video exporter. The configured
// ffmpeg_path overrides bin. Non-nil audio samples are muxed in.
func NewFFmpegExporter(
	cfg project.ExportConfig,
	outputPath, bin string,
	w, h int,
	audio []float32,
	logger *log.Logger,
) (*FFmpegExporter, error) {
	if cfg.FFmpegPath != "" {
		bin = cfg.FFmpegPath
	}

	e := &FFmpegExporter{
		cfg:        cfg,
		outputPath: outputPath,
		bin:        bin,
		newProcess: ffmpeg.NewProcess,
		log:        logger,
		width:      w,
		height:     h,
		procErr:    make(chan error, 1),
	}

	if len(audio) > 0 {
		if err := e.writeAudioTrack(audio); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// writeAudioTrack pre-renders the mixed audio to a temporary f32le
// file for muxing.
func (e *FFmpegExporter) writeAudioTrack(samples []float32) error {
	file, err := os.CreateTemp("", "mgc-audio-*.f32")
	if err != nil {
		return fmt.Errorf("could not create audio temp file: %w", err)
	}
	defer file.Close()

	buf := make([]byte, 4)
	writer := file
	for _, s := range samples {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(s))
		if _, err := writer.Write(buf); err != nil {
			return fmt.Errorf("could not write audio track: %w", err)
		}
	}
	e.audioPath = file.Name()
	return file.Close()
}

func (e *FFmpegExporter) args() []string {
	fps := e.cfg.FPS
	if fps == 0 {
		fps = 30
	}

	args := []string{
		"-y",
		"-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", e.width, e.height),
		"-framerate", strconv.FormatFloat(fps, 'f', -1, 64),
		"-i", "-",
	}

	if e.audioPath != "" {
		sampleRate := e.cfg.AudioSampleRate
		if sampleRate == 0 {
			sampleRate = 48000
		}
		args = append(args,
			"-f", "f32le",
			"-ar", strconv.Itoa(sampleRate),
			"-ac", "2",
			"-i", e.audioPath,
		)
	}

	codec := e.cfg.Codec
	if codec == "" {
		codec = "libx264"
	}
	args = append(args, "-c:v", codec)

	pixFmt := e.cfg.PixelFormat
	if pixFmt == "" {
		pixFmt = "yuv420p"
	}
	args = append(args, "-pix_fmt", pixFmt)

	if e.cfg.VideoBitrate != "" {
		args = append(args, "-b:v", e.cfg.VideoBitrate)
	}
	if e.cfg.CRF != 0 {
		args = append(args, "-crf", strconv.Itoa(e.cfg.CRF))
	}
	if e.cfg.Preset != "" {
		args = append(args, "-preset", e.cfg.Preset)
	}

	if e.audioPath != "" {
		audioCodec := e.cfg.AudioCodec
		if audioCodec == "" {
			audioCodec = "aac"
		}
		args = append(args, "-c:a", audioCodec)
		if e.cfg.AudioBitrate != "" {
			args = append(args, "-b:a", e.cfg.AudioBitrate)
		}
	}

	for key, value := range e.cfg.Parameters {
		args = append(args, key, value)
	}

	return append(args, e.outputPath)
}

func (e *FFmpegExporter) start() error {
	if err := os.MkdirAll(filepath.Dir(e.outputPath), 0o755); err != nil && !os.IsExist(err) {
		return fmt.Errorf("could not create output directory: %w", err)
	}

	reader, writer := io.Pipe()
	e.pipe = writer

	cmd := exec.Command(e.bin, e.args()...)

	logFunc := func(msg string) {
		e.log.FFmpegLevel("error").Src("export").Msgf("encoder: %v", msg)
	}
	process := e.newProcess(cmd).
		Timeout(10 * time.Second).
		StderrLogger(logFunc).
		Stdin(reader)

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	go func() {
		err := process.Start(ctx)
		reader.CloseWithError(err) //nolint:errcheck
		e.procErr <- err
	}()

	e.started = true
	return nil
}

// SaveFrame implements Exporter. The first frame starts the encoder.
func (e *FFmpegExporter) SaveFrame(frameIndex int64, path string, img *image.RGBA) error {
	if !e.started {
		if err := e.start(); err != nil {
			return err
		}
	}

	want := e.width * e.height * 4
	if len(img.Pix) != want {
		return fmt.Errorf("frame %v has wrong size: got %v want %v",
			frameIndex, len(img.Pix), want)
	}

	if _, err := e.pipe.Write(img.Pix); err != nil {
		return fmt.Errorf("could not write frame %v to encoder: %w", frameIndex, err)
	}
	return nil
}

// Finish implements Exporter: closes the encoder input and waits
// for it to exit.
func (e *FFmpegExporter) Finish() error {
	if e.audioPath != "" {
		defer os.Remove(e.audioPath)
	}
	if !e.started {
		return nil
	}

	e.pipe.Close()
	err := <-e.procErr
	e.cancel()
	if err != nil {
		return fmt.Errorf("encoder exited: %w", err)
	}
	return nil
}
