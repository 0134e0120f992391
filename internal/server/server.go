// Package server exposes the operator actions over HTTP and pushes display
// updates to connected surfaces over websockets.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"auction_display/internal/engine"
	"auction_display/internal/images"
	"auction_display/internal/notify"
	"auction_display/internal/sheet"
	"auction_display/internal/stage"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const maxUploadBytes = 64 << 20

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Displays may be served from anywhere on the venue network.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server wires the operator API to the controller and engine.
type Server struct {
	controller *stage.Controller
	engine     *engine.Engine
	images     *images.Store
	hub        *Hub
	alerts     *notify.Client
}

func New(controller *stage.Controller, eng *engine.Engine, imgStore *images.Store, hub *Hub, alerts *notify.Client) *Server {
	return &Server{
		controller: controller,
		engine:     eng,
		images:     imgStore,
		hub:        hub,
		alerts:     alerts,
	}
}

// Routes builds the full route table.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/ws", s.handleWebSocket)
	r.HandleFunc("/images/{id}", s.handleGetImage).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/images", s.handleUploadImages).Methods("POST")
	api.HandleFunc("/images", s.handleClearImages).Methods("DELETE")
	api.HandleFunc("/sheet/link", s.handleLinkSheet).Methods("POST")
	api.HandleFunc("/sheet", s.handleGetSheet).Methods("GET")
	api.HandleFunc("/start", s.handleStart).Methods("POST")
	api.HandleFunc("/refresh", s.handleRefresh).Methods("POST")
	api.HandleFunc("/pause", s.handlePause).Methods("POST")
	api.HandleFunc("/resume", s.handleResume).Methods("POST")
	api.HandleFunc("/next", s.handleNext).Methods("POST")
	api.HandleFunc("/previous", s.handlePrevious).Methods("POST")
	api.HandleFunc("/back", s.handleBack).Methods("POST")

	return r
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	client := s.hub.addClient(conn)
	go client.writePump()
	go client.readPump(s.hub)
}

type statusResponse struct {
	Stage      string `json:"stage"`
	State      string `json:"state"`
	SlideIndex int    `json:"slideIndex"`
	SlideCount int    `json:"slideCount"`
	Page       int    `json:"page"`
	PageCount  int    `json:"pageCount"`
	Row        int    `json:"row"`
	ImageCount int    `json:"imageCount"`
	SheetLink  string `json:"sheetLink,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot()
	resp := statusResponse{
		Stage:      string(s.controller.Current()),
		State:      snap.State.String(),
		SlideIndex: snap.Index,
		SlideCount: snap.SlideCount,
		Page:       snap.Page,
		PageCount:  snap.PageCount,
		Row:        snap.Row,
		ImageCount: s.images.Count(),
	}
	if raw, ok := s.controller.RawLink(); ok {
		resp.SheetLink = raw
	}
	writeJSON(w, http.StatusOK, resp)
}

type uploadResponse struct {
	Success bool `json:"success"`
	Stored  int  `json:"stored"`
	Total   int  `json:"total"`
}

func (s *Server) handleUploadImages(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "Invalid multipart upload", http.StatusBadRequest)
		return
	}

	var batch []images.File
	for _, headers := range r.MultipartForm.File {
		for _, header := range headers {
			f, err := header.Open()
			if err != nil {
				http.Error(w, fmt.Sprintf("Failed to open %s", header.Filename), http.StatusBadRequest)
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				http.Error(w, fmt.Sprintf("Failed to read %s", header.Filename), http.StatusBadRequest)
				return
			}
			batch = append(batch, images.File{
				Name:        header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Data:        data,
			})
		}
	}

	if len(batch) == 0 {
		http.Error(w, "No files in upload", http.StatusBadRequest)
		return
	}

	stored, err := s.images.Ingest(batch)
	if err != nil {
		log.Error().Err(err).Msg("Image ingest failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	log.Info().Int("stored", stored).Msg("Images uploaded")
	writeJSON(w, http.StatusOK, uploadResponse{Success: true, Stored: stored, Total: s.images.Count()})
}

func (s *Server) handleClearImages(w http.ResponseWriter, r *http.Request) {
	if err := s.images.Clear(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	data, contentType, err := s.images.Get(id)
	if err != nil {
		http.Error(w, "Image not found", http.StatusNotFound)
		return
	}
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Write(data)
}

type linkRequest struct {
	URL string `json:"url"`
}

type linkResponse struct {
	Success bool   `json:"success"`
	Stage   string `json:"stage"`
}

func (s *Server) handleLinkSheet(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if err := s.controller.LinkSheet(r.Context(), req.URL); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, sheet.ErrUnreachable) {
			status = http.StatusBadGateway
		}
		http.Error(w, err.Error(), status)
		return
	}

	writeJSON(w, http.StatusOK, linkResponse{Success: true, Stage: string(s.controller.Current())})
}

type sheetResponse struct {
	URL string `json:"url"`
}

func (s *Server) handleGetSheet(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.controller.RawLink()
	if !ok {
		http.Error(w, "No sheet linked", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sheetResponse{URL: raw})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.runPipeline(w, r, s.controller.Start)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.runPipeline(w, r, s.controller.Refresh)
}

type pipelineResponse struct {
	Success bool   `json:"success"`
	Stage   string `json:"stage"`
	Empty   bool   `json:"empty,omitempty"`
}

// runPipeline shares the error mapping between start and refresh: both end
// in an engine refresh with the same failure modes.
func (s *Server) runPipeline(w http.ResponseWriter, r *http.Request, action func(context.Context) error) {
	err := action(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, pipelineResponse{Success: true, Stage: string(s.controller.Current())})
	case errors.Is(err, engine.ErrNoOpenItems):
		// A successful fetch with nothing to show; the surface renders the
		// explicit empty state.
		writeJSON(w, http.StatusOK, pipelineResponse{Success: true, Stage: string(s.controller.Current()), Empty: true})
	case errors.Is(err, stage.ErrWrongStage):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, sheet.ErrUnreachable):
		log.Error().Err(err).Msg("Data refresh failed")
		go s.alerts.Send(context.Background(), "Auction display", "Sheet refresh failed: "+err.Error())
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.requireRunning(w, func() { s.engine.Pause() })
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.requireRunning(w, func() { s.engine.Resume() })
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.requireRunning(w, func() { s.engine.Next() })
}

func (s *Server) handlePrevious(w http.ResponseWriter, r *http.Request) {
	s.requireRunning(w, func() { s.engine.Previous() })
}

func (s *Server) requireRunning(w http.ResponseWriter, command func()) {
	if s.controller.Current() != stage.StageRunning {
		http.Error(w, "Playback is not running", http.StatusConflict)
		return
	}
	command()
	w.WriteHeader(http.StatusNoContent)
}

type backRequest struct {
	PurgeImages bool `json:"purgeImages"`
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	var req backRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
	}

	if err := s.controller.Back(req.PurgeImages); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, pipelineResponse{Success: true, Stage: string(s.controller.Current())})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
