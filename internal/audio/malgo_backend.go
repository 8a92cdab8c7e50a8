package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// DefaultFallbackSampleRate is used when a device reports no native rate
const DefaultFallbackSampleRate = 44100

// MalgoBackend implements Backend using miniaudio through malgo
type MalgoBackend struct {
	fallbackRate uint32

	mutex sync.Mutex
	ctx   *malgo.AllocatedContext
}

// NewMalgoBackend creates a backend; the miniaudio context is initialized lazily
func NewMalgoBackend(fallbackRate uint32) *MalgoBackend {
	if fallbackRate == 0 {
		fallbackRate = DefaultFallbackSampleRate
	}
	return &MalgoBackend{fallbackRate: fallbackRate}
}

func (b *MalgoBackend) context() (*malgo.AllocatedContext, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.ctx != nil {
		return b.ctx, nil
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to init audio context: %w", err)
	}
	b.ctx = ctx
	return ctx, nil
}

// DefaultInputDevice returns the capture device flagged as default, or the
// first one reported when none is flagged
func (b *MalgoBackend) DefaultInputDevice() (Device, error) {
	ctx, err := b.context()
	if err != nil {
		return nil, err
	}

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate capture devices: %w", err)
	}
	if len(infos) == 0 {
		return nil, errors.New("no capture devices reported")
	}

	chosen := infos[0]
	for _, info := range infos {
		if info.IsDefault != 0 {
			chosen = info
			break
		}
	}

	slog.Debug("Selected capture device", "device", chosen.Name())
	return &malgoDevice{ctx: ctx, info: chosen, fallbackRate: b.fallbackRate}, nil
}

// ListSources returns the names of all capture devices
func (b *MalgoBackend) ListSources() ([]string, error) {
	ctx, err := b.context()
	if err != nil {
		return nil, err
	}

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate capture devices: %w", err)
	}

	sources := make([]string, 0, len(infos))
	for _, info := range infos {
		name := info.Name()
		if info.IsDefault != 0 {
			name += " (default)"
		}
		sources = append(sources, name)
	}
	return sources, nil
}

// GetType returns the backend type
func (b *MalgoBackend) GetType() BackendType {
	return BackendTypeMalgo
}

// Close releases the miniaudio context
func (b *MalgoBackend) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.ctx == nil {
		return nil
	}

	err := b.ctx.Uninit()
	b.ctx.Free()
	b.ctx = nil
	if err != nil {
		return fmt.Errorf("failed to uninit audio context: %w", err)
	}
	return nil
}

type malgoDevice struct {
	ctx          *malgo.AllocatedContext
	info         malgo.DeviceInfo
	fallbackRate uint32
}

func (d *malgoDevice) Name() string {
	return d.info.Name()
}

// DefaultInputConfig reports the first native format of the device.
// Formats miniaudio cannot hand over as f32 or s16 come back as FormatUnknown.
func (d *malgoDevice) DefaultInputConfig() (StreamConfig, error) {
	full, err := d.ctx.DeviceInfo(malgo.Capture, d.info.ID, malgo.Shared)
	if err != nil {
		return StreamConfig{}, fmt.Errorf("failed to query device info: %w", err)
	}
	if full.FormatCount == 0 {
		return StreamConfig{}, errors.New("device reports no native formats")
	}

	native := full.Formats[0]
	cfg := StreamConfig{
		SampleRate: native.SampleRate,
		Channels:   int(native.Channels),
		Format:     fromMalgoFormat(native.Format),
	}
	if cfg.Channels == 0 {
		cfg.Channels = 1
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = d.fallbackRate
	}

	slog.Debug("Native input config",
		"device", d.Name(),
		"native_format", native.Format,
		"format", cfg.Format,
		"rate", cfg.SampleRate,
		"channels", cfg.Channels)
	return cfg, nil
}

func (d *malgoDevice) BuildInputStream(cfg StreamConfig, onData DataFunc, onError ErrorFunc) (Stream, error) {
	format, ok := toMalgoFormat(cfg.Format)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, cfg.Format)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.DeviceID = d.info.ID.Pointer()
	deviceConfig.Capture.Format = format
	deviceConfig.Capture.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = cfg.SampleRate

	stream := &malgoStream{}
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			onData(input)
		},
		Stop: func() {
			// Stop also fires when we close the stream ourselves
			if stream.closing.Load() || onError == nil {
				return
			}
			onError(errors.New("capture device stopped unexpectedly"))
		},
	}

	device, err := malgo.InitDevice(d.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("failed to init capture device: %w", err)
	}
	stream.device = device
	return stream, nil
}

type malgoStream struct {
	device  *malgo.Device
	closing atomic.Bool
}

func (s *malgoStream) Start() error {
	if err := s.device.Start(); err != nil {
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	return nil
}

func (s *malgoStream) Close() error {
	if !s.closing.CompareAndSwap(false, true) {
		return nil
	}

	var err error
	if s.device.IsStarted() {
		err = s.device.Stop()
	}
	s.device.Uninit()
	if err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}
	return nil
}

func fromMalgoFormat(f malgo.FormatType) SampleFormat {
	switch f {
	case malgo.FormatF32:
		return FormatF32
	case malgo.FormatS16:
		return FormatS16
	default:
		return FormatUnknown
	}
}

// miniaudio has no unsigned 16-bit format, so u16 streams cannot be opened here
func toMalgoFormat(f SampleFormat) (malgo.FormatType, bool) {
	switch f {
	case FormatF32:
		return malgo.FormatF32, true
	case FormatS16:
		return malgo.FormatS16, true
	default:
		return malgo.FormatUnknown, false
	}
}
