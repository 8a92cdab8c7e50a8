package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audiolibrelab/voxcapture/internal/audio"
	"github.com/audiolibrelab/voxcapture/internal/config"
	"github.com/audiolibrelab/voxcapture/internal/service"
	"github.com/audiolibrelab/voxcapture/internal/settings"
	"github.com/audiolibrelab/voxcapture/internal/wav"
)

type fakeService struct {
	cfg       *config.Config
	status    audio.Status
	startErr  error
	stopErr   error
	stopPath  string
	location  *settings.LocationSettings
	hotkeys   int
	canceled  int
	lastError string
}

func (f *fakeService) StartRecording() error {
	if f.startErr != nil {
		f.lastError = f.startErr.Error()
		return f.startErr
	}
	f.status = audio.StatusRecording
	return nil
}

func (f *fakeService) StopRecording() (string, error) {
	if f.status != audio.StatusRecording {
		return "", audio.ErrNotRecording
	}
	f.status = audio.StatusIdle
	if f.stopErr != nil {
		return "", f.stopErr
	}
	return f.stopPath, nil
}

func (f *fakeService) CancelRecording() error {
	f.canceled++
	f.status = audio.StatusIdle
	return nil
}

func (f *fakeService) GetRecordingStatus() (audio.Status, *audio.SessionInfo) {
	if f.status == audio.StatusRecording {
		return f.status, &audio.SessionInfo{ID: "abc", Device: "mic", SampleRate: 48000, Channels: 2}
	}
	return audio.StatusIdle, nil
}

func (f *fakeService) TriggerHotkey() error {
	f.hotkeys++
	return f.StartRecording()
}

func (f *fakeService) GetSavedLocation() (*settings.LocationSettings, error) {
	return f.location, nil
}

func (f *fakeService) SetSavedLocation(loc settings.LocationSettings) error {
	f.location = &loc
	return nil
}

func (f *fakeService) ListRecordings() ([]service.RecordingFile, error) {
	return []service.RecordingFile{{Name: "recording_1.wav"}}, nil
}

func (f *fakeService) RecordingPath(name string) (string, error) {
	if strings.Contains(name, "..") || !strings.HasSuffix(name, ".wav") {
		return "", fmt.Errorf("%w: %q", service.ErrInvalidRecordingName, name)
	}
	path := filepath.Join(f.cfg.Output.Directory, name)
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}

func (f *fakeService) ListSources() ([]string, error) { return []string{"mic (default)"}, nil }
func (f *fakeService) GetConfig() *config.Config      { return f.cfg }
func (f *fakeService) GetLastError() string           { return f.lastError }
func (f *fakeService) Close() error                   { return nil }

func newTestServer(t *testing.T) (*fakeService, http.Handler) {
	t.Helper()
	cfg := config.Default()
	cfg.Output.Directory = t.TempDir()
	svc := &fakeService{cfg: cfg, status: audio.StatusIdle}
	return svc, New(svc, nil, "0").Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestStartStopFlow(t *testing.T) {
	svc, h := newTestServer(t)
	svc.stopPath = filepath.Join(svc.cfg.Output.Directory, "recording_42.wav")

	rec, body := do(t, h, http.MethodPost, "/start", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "RECORDING", body["status"])

	rec, body = do(t, h, http.MethodGet, "/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "RECORDING", body["status"])
	assert.Contains(t, body["message"], "Recording from mic")

	rec, body = do(t, h, http.MethodPost, "/stop", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, svc.stopPath, body["path"])
	assert.Equal(t, "recording_42.wav", body["name"])
	assert.Equal(t, "/api/recordings/recording_42.wav", body["stream_url"])
}

func TestStopWhileIdleIsConflict(t *testing.T) {
	_, h := newTestServer(t)

	rec, body := do(t, h, http.MethodPost, "/stop", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, false, body["success"])
}

func TestStartErrorCodes(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("%w: none", audio.ErrDeviceUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("%w: query", audio.ErrConfig), http.StatusServiceUnavailable},
		{fmt.Errorf("%w: i24", audio.ErrUnsupportedFormat), http.StatusServiceUnavailable},
		{fmt.Errorf("%w: busy", audio.ErrStream), http.StatusServiceUnavailable},
		{errors.New("unexpected"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			svc, h := newTestServer(t)
			svc.startErr = tt.err

			rec, body := do(t, h, http.MethodPost, "/start", "")
			assert.Equal(t, tt.code, rec.Code)
			assert.Contains(t, body["error"], tt.err.Error())
		})
	}
}

func TestStopEncodeErrorIsInternal(t *testing.T) {
	svc, h := newTestServer(t)
	svc.status = audio.StatusRecording
	svc.stopErr = fmt.Errorf("%w: disk full", wav.ErrEncode)

	rec, _ := do(t, h, http.MethodPost, "/stop", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCancel(t *testing.T) {
	svc, h := newTestServer(t)
	svc.status = audio.StatusRecording

	rec, body := do(t, h, http.MethodPost, "/cancel", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, 1, svc.canceled)
	assert.Equal(t, audio.StatusIdle, svc.status)
}

func TestMethodNotAllowed(t *testing.T) {
	_, h := newTestServer(t)

	for _, path := range []string{"/start", "/stop", "/cancel", "/api/hotkey"} {
		rec, _ := do(t, h, http.MethodGet, path, "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, path)
	}
	rec, _ := do(t, h, http.MethodPost, "/status", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	rec, _ = do(t, h, http.MethodDelete, "/api/location", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestLocation(t *testing.T) {
	svc, h := newTestServer(t)

	rec, body := do(t, h, http.MethodGet, "/api/location", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, body["location"])

	rec, _ = do(t, h, http.MethodPut, "/api/location", `{"location":"Nairobi","country":"KE"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.location)
	assert.Equal(t, "Nairobi", svc.location.Location)
	assert.Equal(t, "KE", *svc.location.Country)

	rec, body = do(t, h, http.MethodGet, "/api/location", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	loc := body["location"].(map[string]interface{})
	assert.Equal(t, "Nairobi", loc["location"])

	rec, _ = do(t, h, http.MethodPut, "/api/location", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHotkey(t *testing.T) {
	svc, h := newTestServer(t)

	rec, _ := do(t, h, http.MethodPost, "/api/hotkey", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, svc.hotkeys)
	assert.Equal(t, audio.StatusRecording, svc.status)
}

func TestSourcesAndRecordings(t *testing.T) {
	_, h := newTestServer(t)

	rec, body := do(t, h, http.MethodGet, "/sources", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{"mic (default)"}, body["sources"])

	rec, body = do(t, h, http.MethodGet, "/api/recordings", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["total_count"])
}

func TestRecordingStream(t *testing.T) {
	svc, h := newTestServer(t)
	content := []byte("RIFF....WAVE")
	require.NoError(t, os.WriteFile(filepath.Join(svc.cfg.Output.Directory, "recording_7.wav"), content, 0644))

	rec, _ := do(t, h, http.MethodGet, "/api/recordings/recording_7.wav", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))
	assert.Equal(t, content, rec.Body.Bytes())

	req := httptest.NewRequest(http.MethodGet, "/api/recordings/recording_7.wav", nil)
	req.Header.Set("Range", "bytes=0-3")
	ranged := httptest.NewRecorder()
	h.ServeHTTP(ranged, req)
	assert.Equal(t, http.StatusPartialContent, ranged.Code)
	assert.Equal(t, "RIFF", ranged.Body.String())

	rec, _ = do(t, h, http.MethodGet, "/api/recordings/recording_8.wav", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/api/recordings/notes.txt", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIndex(t *testing.T) {
	_, h := newTestServer(t)

	rec, _ := do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "voxcapture")

	rec, _ = do(t, h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusCodeFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusCodeFor(audio.ErrNotRecording))
	assert.Equal(t, http.StatusServiceUnavailable, statusCodeFor(fmt.Errorf("wrapped: %w", audio.ErrStream)))
	assert.Equal(t, http.StatusInternalServerError, statusCodeFor(errors.New("other")))
}
