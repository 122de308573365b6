package audio

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ebitengine/oto/v3"
)

// DeviceConfig describes the audio device format. The synthesis service
// always delivers 24kHz 16-bit mono, so the defaults match that and the
// device is opened once with the matching format.
type DeviceConfig struct {
	SampleRate int // samples per second, default 24000
	Channels   int // 1 = mono, 2 = stereo, default 1
}

// DefaultDeviceConfig matches the riff-24khz-16bit-mono-pcm artifact
// format requested from the synthesis service.
func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		SampleRate: 24000,
		Channels:   1,
	}
}

// Device plays wav artifacts on the system's audio output. The oto
// context is initialized once and reused; oto v3 contexts have no Close,
// so a Device lives for the process lifetime.
type Device struct {
	context    *oto.Context
	sampleRate int
	channels   int
}

// NewDevice opens the system audio output with the given format and
// blocks until the device is ready.
func NewDevice(cfg DeviceConfig) (*Device, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 24000
	}
	if cfg.Channels != 1 && cfg.Channels != 2 {
		cfg.Channels = 1
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open audio device: %w", err)
	}
	<-ready

	return &Device{
		context:    ctx,
		sampleRate: cfg.SampleRate,
		channels:   cfg.Channels,
	}, nil
}

// Play reads the wav file at path and plays it to completion. The call
// blocks until the last sample has been handed to the device, so callers
// running on a serial executor get naturally ordered speech.
func (d *Device) Play(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read audio artifact: %w", err)
	}
	pcm, err := pcmData(raw)
	if err != nil {
		return fmt.Errorf("unplayable audio artifact %s: %w", path, err)
	}
	if len(pcm) == 0 {
		return fmt.Errorf("audio artifact %s carries no samples", path)
	}
	return d.playPCM(pcm)
}

// PlaySilence plays d nanoseconds of zero samples. Wireless output
// routes drop the first moments of audio while they wake from standby; a
// silent burst ahead of real speech absorbs that gap.
func (d *Device) PlaySilence(dur time.Duration) error {
	if dur <= 0 {
		return errors.New("silence duration must be positive")
	}
	samples := int(dur * time.Duration(d.sampleRate) / time.Second)
	return d.playPCM(make([]byte, samples*d.channels*2))
}

func (d *Device) playPCM(pcm []byte) error {
	player := d.context.NewPlayer(bytes.NewReader(pcm))
	player.Play()
	for player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
	if err := player.Close(); err != nil {
		return fmt.Errorf("failed to release audio player: %w", err)
	}
	return nil
}
