package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/audiolibrelab/voxcapture/internal/audio"
	"github.com/audiolibrelab/voxcapture/internal/service"
	"github.com/audiolibrelab/voxcapture/internal/settings"
)

const recordingsPath = "/api/recordings/"

// Server represents the web server for controlling voxcapture
type Server struct {
	service    service.Service
	events     http.Handler
	port       string
	httpServer *http.Server
}

// StatusResponse represents the JSON response for status endpoint
type StatusResponse struct {
	Status    string             `json:"status"`
	Message   string             `json:"message,omitempty"`
	Session   *audio.SessionInfo `json:"session,omitempty"`
	LastError string             `json:"last_error,omitempty"`
}

// LocationResponse represents the JSON response for the location endpoint
type LocationResponse struct {
	Success  bool                       `json:"success"`
	Location *settings.LocationSettings `json:"location"`
}

// RecordingsResponse represents the JSON response for recordings endpoint
type RecordingsResponse struct {
	Recordings      []service.RecordingFile `json:"recordings"`
	TotalCount      int                     `json:"total_count"`
	OutputDirectory string                  `json:"output_directory"`
}

// New creates a web server around the service. events serves the
// WebSocket event stream and may be nil.
func New(svc service.Service, events http.Handler, port string) *Server {
	s := &Server{
		service: svc,
		events:  events,
		port:    port,
	}
	s.httpServer = &http.Server{
		Addr:              ":" + port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routes of the control API
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/start", s.handleStart)
	mux.HandleFunc("/stop", s.handleStop)
	mux.HandleFunc("/cancel", s.handleCancel)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/sources", s.handleSources)
	mux.HandleFunc("/api/location", s.handleLocation)
	mux.HandleFunc("/api/hotkey", s.handleHotkey)
	mux.HandleFunc("/api/recordings", s.handleRecordings)
	mux.HandleFunc(recordingsPath, s.handleRecordingStream)
	if s.events != nil {
		mux.Handle("/ws", s.events)
	}
	return mux
}

// Start starts the web server and blocks until it is shut down
func (s *Server) Start() error {
	localIP := getLocalIP()

	slog.Info("Starting voxcapture web server",
		"port", s.port,
		"local_url", fmt.Sprintf("http://%s:%s", localIP, s.port),
		"localhost_url", fmt.Sprintf("http://localhost:%s", s.port))

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for active ones to finish
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Stopping voxcapture web server")
	return s.httpServer.Shutdown(ctx)
}

// handleIndex serves the main web UI
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	htmlPath := "web/static/index.html"
	htmlContent, err := os.ReadFile(htmlPath)
	if err != nil {
		htmlContent = []byte(getDefaultHTML())
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(htmlContent)
}

// getDefaultHTML provides a fallback HTML interface
func getDefaultHTML() string {
	return `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>voxcapture</title>
</head>
<body>
    <h1>voxcapture</h1>
    <p>Level: <meter id="level" min="0" max="1" value="0"></meter> <span id="state">IDLE</span></p>
    <button onclick="post('/start')">Start</button>
    <button onclick="post('/stop')">Stop</button>
    <button onclick="post('/cancel')">Cancel</button>
    <pre id="out"></pre>
    <script>
    const out = document.getElementById('out');
    function post(path) {
        fetch(path, {method: 'POST'}).then(r => r.json()).then(j => out.textContent = JSON.stringify(j, null, 2));
    }
    const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
    ws.onmessage = (m) => {
        const ev = JSON.parse(m.data);
        if (ev.event === 'audio-level') document.getElementById('level').value = ev.payload.peak;
        if (ev.event === 'start-recording') document.getElementById('state').textContent = 'RECORDING';
        if (ev.event === 'recording-stopped' || ev.event === 'recording-canceled') document.getElementById('state').textContent = 'IDLE';
    };
    </script>
</body>
</html>`
}

// handleStart begins a recording (IDLE -> RECORDING)
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	if err := s.service.StartRecording(); err != nil {
		s.sendErrorResponse(w, statusCodeFor(err),
			fmt.Sprintf("Failed to start recording: %v", err),
			"operation", "start_recording")
		return
	}

	status, session := s.service.GetRecordingStatus()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Recording started",
		"status":  status,
		"session": session,
	})
}

// handleStop ends the recording and reports the saved file
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	path, err := s.service.StopRecording()
	if err != nil {
		s.sendErrorResponse(w, statusCodeFor(err),
			fmt.Sprintf("Failed to stop recording: %v", err),
			"operation", "stop_recording")
		return
	}

	name := filepath.Base(path)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    "Recording stopped",
		"path":       path,
		"name":       name,
		"stream_url": recordingsPath + name,
	})
}

// handleCancel discards the recording in progress
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	if err := s.service.CancelRecording(); err != nil {
		s.sendErrorResponse(w, statusCodeFor(err),
			fmt.Sprintf("Failed to cancel recording: %v", err),
			"operation", "cancel_recording")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Recording canceled",
	})
}

// handleStatus returns the current status and session info
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	status, session := s.service.GetRecordingStatus()
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:    string(status),
		Message:   generateStatusMessage(status, session),
		Session:   session,
		LastError: s.service.GetLastError(),
	})
}

// handleSources returns the capture devices known to the backend
func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	sources, err := s.service.ListSources()
	if err != nil {
		s.sendErrorResponse(w, http.StatusServiceUnavailable,
			fmt.Sprintf("Failed to list sources: %v", err),
			"operation", "list_sources")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"sources": sources})
}

// handleLocation reads (GET) or replaces (PUT) the saved location
func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		loc, err := s.service.GetSavedLocation()
		if err != nil {
			s.sendErrorResponse(w, http.StatusInternalServerError,
				fmt.Sprintf("Failed to load location: %v", err),
				"operation", "get_location")
			return
		}
		writeJSON(w, http.StatusOK, LocationResponse{Success: true, Location: loc})

	case http.MethodPut, http.MethodPost:
		var loc settings.LocationSettings
		if err := json.NewDecoder(r.Body).Decode(&loc); err != nil {
			s.sendErrorResponse(w, http.StatusBadRequest,
				fmt.Sprintf("Invalid location payload: %v", err),
				"operation", "set_location")
			return
		}
		if err := s.service.SetSavedLocation(loc); err != nil {
			s.sendErrorResponse(w, http.StatusInternalServerError,
				fmt.Sprintf("Failed to save location: %v", err),
				"operation", "set_location")
			return
		}
		writeJSON(w, http.StatusOK, LocationResponse{Success: true, Location: &loc})

	default:
		writeMethodNotAllowed(w)
	}
}

// handleHotkey simulates the global record hotkey
func (s *Server) handleHotkey(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	if err := s.service.TriggerHotkey(); err != nil {
		s.sendErrorResponse(w, statusCodeFor(err),
			fmt.Sprintf("Failed to start recording: %v", err),
			"operation", "hotkey")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Hotkey triggered",
	})
}

// handleRecordings lists finished recordings, newest first
func (s *Server) handleRecordings(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	recordings, err := s.service.ListRecordings()
	if err != nil {
		s.sendErrorResponse(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to list recordings: %v", err),
			"operation", "list_recordings")
		return
	}

	writeJSON(w, http.StatusOK, RecordingsResponse{
		Recordings:      recordings,
		TotalCount:      len(recordings),
		OutputDirectory: s.service.GetConfig().Output.Directory,
	})
}

// handleRecordingStream serves a finished WAV file with range support
func (s *Server) handleRecordingStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filename := strings.TrimPrefix(r.URL.Path, recordingsPath)
	if filename == "" {
		http.Error(w, "Filename required", http.StatusBadRequest)
		return
	}

	path, err := s.service.RecordingPath(filename)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRecordingName):
			http.Error(w, "Invalid filename", http.StatusBadRequest)
		case errors.Is(err, os.ErrNotExist):
			http.Error(w, "File not found", http.StatusNotFound)
		default:
			http.Error(w, "Error accessing file", http.StatusInternalServerError)
		}
		return
	}

	file, err := os.Open(path)
	if err != nil {
		http.Error(w, "Error opening file", http.StatusInternalServerError)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		http.Error(w, "Error accessing file", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Accept-Ranges", "bytes")
	http.ServeContent(w, r, filename, info.ModTime(), file)
}

// statusCodeFor maps recorder error kinds to HTTP status codes
func statusCodeFor(err error) int {
	switch {
	case errors.Is(err, audio.ErrNotRecording):
		return http.StatusConflict
	case errors.Is(err, audio.ErrDeviceUnavailable),
		errors.Is(err, audio.ErrConfig),
		errors.Is(err, audio.ErrUnsupportedFormat),
		errors.Is(err, audio.ErrStream):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func generateStatusMessage(status audio.Status, session *audio.SessionInfo) string {
	switch status {
	case audio.StatusRecording:
		if session != nil {
			return fmt.Sprintf("Recording from %s (%d Hz, %d ch) for %s",
				session.Device, session.SampleRate, session.Channels,
				time.Since(session.StartTime).Truncate(time.Second))
		}
		return "Recording"
	default:
		return ""
	}
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	writeMethodNotAllowed(w)
	return false
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]interface{}{
		"success": false,
		"error":   "Method not allowed",
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// sendErrorResponse sends a JSON error response and logs it
func (s *Server) sendErrorResponse(w http.ResponseWriter, statusCode int, errorMsg string, logContext ...interface{}) {
	logFields := []interface{}{"error_message", errorMsg, "status_code", statusCode}
	if len(logContext) > 0 {
		logFields = append(logFields, logContext...)
	}
	slog.Error("Sending error response to client", logFields...)

	writeJSON(w, statusCode, map[string]interface{}{
		"success": false,
		"error":   errorMsg,
	})
}

func getLocalIP() string {
	// Try to connect to a remote address to determine local IP
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "localhost"
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String()
}
