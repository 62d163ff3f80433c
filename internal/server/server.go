package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kiesman99/mapframe/internal/api"
	"github.com/kiesman99/mapframe/internal/engine"
	"github.com/kiesman99/mapframe/internal/output"
	"github.com/kiesman99/mapframe/pkg/frame"
	"github.com/kiesman99/mapframe/pkg/projection"
)

// Server implements the ServerInterface of the frame API
type Server struct {
	startTime  time.Time
	version    string
	calculator *frame.Calculator
	engine     engine.Engine
	engineName string
	style      string
	logger     *slog.Logger
}

// Config holds the dependencies of a Server. Style is the Mapnik XML file
// frames and renders are computed for; without it frames carry no layers
// and rendering is disabled.
type Config struct {
	Version    string
	Calculator *frame.Calculator
	Engine     engine.Engine
	EngineName string
	Style      string
	Logger     *slog.Logger
}

// NewServer creates a new server instance
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		startTime:  time.Now(),
		version:    cfg.Version,
		calculator: cfg.Calculator,
		engine:     cfg.Engine,
		engineName: cfg.EngineName,
		style:      cfg.Style,
		logger:     logger,
	}
}

// NewRouter builds the HTTP handler serving the API under /api/v1
func NewRouter(s *Server, timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(timeout))
	r.Use(cors)

	r.Route("/api/v1", func(r chi.Router) {
		api.HandlerWithOptions(s, api.ChiServerOptions{
			BaseRouter:       r,
			ErrorHandlerFunc: s.paramError,
		})
	})

	// Legacy health endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/v1/health", http.StatusMovedPermanently)
	})

	return r
}

// cors allows browser clients on other origins
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GetHealth implements the health check endpoint
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	uptime := int(time.Since(s.startTime).Seconds())

	response := api.HealthResponse{
		Status:    api.Healthy,
		Timestamp: time.Now(),
		Uptime:    &uptime,
		Version:   &s.version,
	}
	if s.engineName != "" {
		response.Engine = &s.engineName
	}

	s.writeJSON(w, http.StatusOK, response)
}

// GetFrame computes a frame from query parameters
func (s *Server) GetFrame(w http.ResponseWriter, r *http.Request, params api.GetFrameParams) {
	requestID := generateRequestID()

	req := api.FrameRequest{
		Center:     api.Center{Lon: params.Lon, Lat: params.Lat},
		Size:       api.Size{Width: params.Width, Height: params.Height},
		Ppi:        params.Ppi,
		Scale:      params.Scale,
		Format:     params.Format,
		AddLayers:  params.AddLayers,
		HideLayers: params.HideLayers,
	}

	s.computeFrame(w, r, &req, requestID)
}

// ComputeFrame computes a frame from a JSON request body
func (s *Server) ComputeFrame(w http.ResponseWriter, r *http.Request) {
	requestID := generateRequestID()

	var req api.FrameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON",
			"Invalid JSON in request body", &requestID, nil)
		return
	}

	s.computeFrame(w, r, &req, requestID)
}

func (s *Server) computeFrame(w http.ResponseWriter, r *http.Request, req *api.FrameRequest, requestID string) {
	renderReq, err := convertToRenderRequest(req)
	if err != nil {
		s.handleFrameError(w, err, &requestID)
		return
	}

	var layers []frame.Layer
	if s.style != "" {
		m, err := s.engine.Load(r.Context(), s.style)
		if err != nil {
			s.handleFrameError(w, err, &requestID)
			return
		}
		layers = m.Layers()
	}

	f, err := s.calculator.Compute(renderReq, layers)
	if err != nil {
		s.handleFrameError(w, err, &requestID)
		return
	}

	w.Header().Set("X-Request-ID", requestID)
	s.writeJSON(w, http.StatusOK, frameResponse(f))
}

// RenderMap renders the configured style and streams the image
func (s *Server) RenderMap(w http.ResponseWriter, r *http.Request) {
	requestID := generateRequestID()

	if s.style == "" {
		s.writeErrorResponse(w, http.StatusServiceUnavailable, "NO_STYLE",
			"No style configured for rendering", &requestID, nil)
		return
	}

	var req api.FrameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON",
			"Invalid JSON in request body", &requestID, nil)
		return
	}

	renderReq, err := convertToRenderRequest(&req)
	if err != nil {
		s.handleFrameError(w, err, &requestID)
		return
	}

	m, err := s.engine.Load(r.Context(), s.style)
	if err != nil {
		s.handleFrameError(w, err, &requestID)
		return
	}

	f, err := s.calculator.Compute(renderReq, m.Layers())
	if err != nil {
		s.handleFrameError(w, err, &requestID)
		return
	}

	if err := engine.Prepare(m, f, s.calculator.Transform().Target().Params); err != nil {
		s.handleFrameError(w, err, &requestID)
		return
	}

	sink, err := output.Open(output.Stdout, renderReq.Format, w)
	if err != nil {
		s.handleFrameError(w, err, &requestID)
		return
	}

	if err := s.engine.Render(r.Context(), m, engine.JobFor(f, renderReq.Format, sink.Path())); err != nil {
		sink.Discard()
		s.handleFrameError(w, err, &requestID)
		return
	}

	w.Header().Set("Content-Type", renderReq.Format.MediaType())
	w.Header().Set("X-Request-ID", requestID)
	w.Header().Set("X-Map-Size", fmt.Sprintf("%d,%d", f.Width, f.Height))
	w.Header().Set("X-Map-Bbox", frame.FormatBox(f.BBox))
	if f.Degraded {
		w.Header().Set("X-Map-Degraded", "true")
	}

	w.WriteHeader(http.StatusOK)
	if err := sink.Close(); err != nil {
		s.logger.Error("error writing rendered map", "request_id", requestID, "error", err)
	}
}

// convertToRenderRequest converts an API request to calculator input
func convertToRenderRequest(req *api.FrameRequest) (frame.RenderRequest, error) {
	format := frame.Format{Name: frame.DefaultFormat}
	if req.Format != nil && *req.Format != "" {
		f, ok := frame.ParseFormat(*req.Format)
		if !ok {
			return frame.RenderRequest{}, &frame.ValidationError{Field: "format", Reason: fmt.Sprintf("unknown format %q", *req.Format)}
		}
		format = f
	}

	renderReq := frame.RenderRequest{
		Center:           projectionPoint(req.Center),
		WidthMM:          req.Size.Width,
		HeightMM:         req.Size.Height,
		PPI:              req.Ppi,
		ScaleDenominator: req.Scale,
		Format:           format,
	}
	if req.AddLayers != nil {
		renderReq.Enable = *req.AddLayers
	}
	if req.HideLayers != nil {
		renderReq.Disable = *req.HideLayers
	}

	return renderReq, nil
}

func frameResponse(f *frame.DerivedFrame) api.FrameResponse {
	var report bytes.Buffer
	frame.WriteReport(&report, f)

	response := api.FrameResponse{
		Width:       f.Width,
		Height:      f.Height,
		Scale:       f.Scale,
		ScaleFactor: f.ScaleFactor,
		Bbox:        apiBox(f.BBox),
		BboxWgs84:   apiBox(f.BBoxWGS84),
		Layers:      f.ActiveLayers(),
		Degraded:    f.Degraded,
		Report:      report.String(),
	}
	if len(f.Warnings) > 0 {
		warnings := append([]string(nil), f.Warnings...)
		response.Warnings = &warnings
	}

	return response
}

func projectionPoint(c api.Center) projection.Point {
	return projection.Point{X: c.Lon, Y: c.Lat}
}

func apiBox(b projection.Box) api.Box {
	return api.Box{MinX: b.MinX, MinY: b.MinY, MaxX: b.MaxX, MaxY: b.MaxY}
}

// handleFrameError maps calculator and engine errors to responses
func (s *Server) handleFrameError(w http.ResponseWriter, err error, requestID *string) {
	var (
		validationErr *frame.ValidationError
		latitudeErr   *frame.LatitudeError
		geometryErr   *frame.InvalidGeometryError
		renderErr     *engine.RenderError
	)

	switch {
	case errors.As(err, &validationErr):
		s.writeValidationErrorResponse(w, validationErr.Field, validationErr.Error(), requestID)
	case errors.As(err, &latitudeErr):
		s.writeErrorResponse(w, http.StatusUnprocessableEntity, "INVALID_LATITUDE",
			latitudeErr.Error(), requestID, map[string]interface{}{
				"lat": latitudeErr.Lat,
			})
	case errors.As(err, &geometryErr):
		s.writeErrorResponse(w, http.StatusUnprocessableEntity, "INVALID_GEOMETRY",
			geometryErr.Error(), requestID, map[string]interface{}{
				"width":  geometryErr.Width,
				"height": geometryErr.Height,
			})
	case errors.As(err, &renderErr):
		s.logger.Error("render failed", "request_id", *requestID, "backend", renderErr.Backend, "error", renderErr.Err)
		s.writeErrorResponse(w, http.StatusBadGateway, "RENDER_ERROR",
			renderErr.Error(), requestID, nil)
	case errors.Is(err, context.DeadlineExceeded):
		s.writeErrorResponse(w, http.StatusGatewayTimeout, "RENDER_TIMEOUT",
			"Rendering timed out", requestID, nil)
	default:
		s.logger.Error("request failed", "request_id", *requestID, "error", err)
		s.writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"Internal server error", requestID, nil)
	}
}

// paramError reports malformed or missing query parameters
func (s *Server) paramError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := generateRequestID()

	field := "query"
	var paramErr *api.InvalidParamFormatError
	if errors.As(err, &paramErr) {
		field = paramErr.ParamName
	}

	s.writeValidationErrorResponse(w, field, err.Error(), &requestID)
}

// writeErrorResponse writes a standard error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string, requestID *string, details map[string]interface{}) {
	response := api.ErrorResponse{
		Error:     errorCode,
		Message:   message,
		RequestId: requestID,
	}

	if details != nil {
		response.Details = &details
	}

	s.writeJSON(w, statusCode, response)
}

// writeValidationErrorResponse writes a validation error response
func (s *Server) writeValidationErrorResponse(w http.ResponseWriter, field, message string, requestID *string) {
	response := api.ValidationErrorResponse{
		Error:     api.VALIDATIONERROR,
		Message:   message,
		RequestId: requestID,
		ValidationErrors: []api.FieldError{
			{
				Field:   field,
				Message: message,
			},
		},
	}

	s.writeJSON(w, http.StatusBadRequest, response)
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("error encoding response", "error", err)
	}
}

// generateRequestID generates a unique request ID
func generateRequestID() string {
	return fmt.Sprintf("req_%d", time.Now().UnixNano())
}
