// Package api defines the wire types and routing of the mapframe HTTP API.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// Defines values for HealthResponseStatus.
const (
	Healthy   HealthResponseStatus = "healthy"
	Unhealthy HealthResponseStatus = "unhealthy"
)

// Defines values for ValidationErrorResponseError.
const (
	VALIDATIONERROR ValidationErrorResponseError = "VALIDATION_ERROR"
)

// Box is a bounding box as minx, miny, maxx, maxy
type Box struct {
	MinX float64 `json:"minx"`
	MinY float64 `json:"miny"`
	MaxX float64 `json:"maxx"`
	MaxY float64 `json:"maxy"`
}

// Center is the map center in WGS84 degrees
type Center struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Size is the print size in millimeters
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FrameRequest defines model for FrameRequest.
type FrameRequest struct {
	Center     Center    `json:"center"`
	Size       Size      `json:"size"`
	Ppi        float64   `json:"ppi"`
	Scale      float64   `json:"scale"`
	Format     *string   `json:"format,omitempty"`
	AddLayers  *[]string `json:"add_layers,omitempty"`
	HideLayers *[]string `json:"hide_layers,omitempty"`
}

// FrameResponse defines model for FrameResponse.
type FrameResponse struct {
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Scale       float64   `json:"scale"`
	ScaleFactor float64   `json:"scale_factor"`
	Bbox        Box       `json:"bbox"`
	BboxWgs84   Box       `json:"bbox_wgs84"`
	Layers      []string  `json:"layers"`
	Degraded    bool      `json:"degraded"`
	Warnings    *[]string `json:"warnings,omitempty"`
	Report      string    `json:"report"`
}

// HealthResponse defines model for HealthResponse.
type HealthResponse struct {
	Status    HealthResponseStatus `json:"status"`
	Timestamp time.Time            `json:"timestamp"`
	Uptime    *int                 `json:"uptime,omitempty"`
	Version   *string              `json:"version,omitempty"`
	Engine    *string              `json:"engine,omitempty"`
}

// HealthResponseStatus defines model for HealthResponse.Status.
type HealthResponseStatus string

// ErrorResponse defines model for ErrorResponse.
type ErrorResponse struct {
	Error     string                  `json:"error"`
	Message   string                  `json:"message"`
	RequestId *string                 `json:"request_id,omitempty"`
	Details   *map[string]interface{} `json:"details,omitempty"`
}

// FieldError is a single rejected request field
type FieldError struct {
	Code    *string `json:"code,omitempty"`
	Field   string  `json:"field"`
	Message string  `json:"message"`
}

// ValidationErrorResponse defines model for ValidationErrorResponse.
type ValidationErrorResponse struct {
	Error            ValidationErrorResponseError `json:"error"`
	Message          string                       `json:"message"`
	RequestId        *string                      `json:"request_id,omitempty"`
	ValidationErrors []FieldError                 `json:"validation_errors"`
}

// ValidationErrorResponseError defines model for ValidationErrorResponse.Error.
type ValidationErrorResponseError string

// GetFrameParams defines parameters for GetFrame.
type GetFrameParams struct {
	Lon        float64   `form:"lon" json:"lon"`
	Lat        float64   `form:"lat" json:"lat"`
	Width      float64   `form:"width" json:"width"`
	Height     float64   `form:"height" json:"height"`
	Ppi        float64   `form:"ppi" json:"ppi"`
	Scale      float64   `form:"scale" json:"scale"`
	Format     *string   `form:"format,omitempty" json:"format,omitempty"`
	AddLayers  *[]string `form:"add_layers,omitempty" json:"add_layers,omitempty"`
	HideLayers *[]string `form:"hide_layers,omitempty" json:"hide_layers,omitempty"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// Health check
	// (GET /health)
	GetHealth(w http.ResponseWriter, r *http.Request)
	// Compute a frame from query parameters
	// (GET /frame)
	GetFrame(w http.ResponseWriter, r *http.Request, params GetFrameParams)
	// Compute a frame
	// (POST /frame)
	ComputeFrame(w http.ResponseWriter, r *http.Request)
	// Render the configured style
	// (POST /render)
	RenderMap(w http.ResponseWriter, r *http.Request)
}

// MiddlewareFunc wraps a handler
type MiddlewareFunc func(http.Handler) http.Handler

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

// GetHealth operation middleware
func (siw *ServerInterfaceWrapper) GetHealth(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.GetHealth)
}

// GetFrame operation middleware
func (siw *ServerInterfaceWrapper) GetFrame(w http.ResponseWriter, r *http.Request) {
	var params GetFrameParams
	query := r.URL.Query()

	for _, p := range []struct {
		name string
		dest *float64
	}{
		{"lon", &params.Lon},
		{"lat", &params.Lat},
		{"width", &params.Width},
		{"height", &params.Height},
		{"ppi", &params.Ppi},
		{"scale", &params.Scale},
	} {
		if err := runtime.BindQueryParameter("form", true, true, p.name, query, p.dest); err != nil {
			siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: p.name, Err: err})
			return
		}
	}

	if err := runtime.BindQueryParameter("form", true, false, "format", query, &params.Format); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "format", Err: err})
		return
	}
	if err := runtime.BindQueryParameter("form", false, false, "add_layers", query, &params.AddLayers); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "add_layers", Err: err})
		return
	}
	if err := runtime.BindQueryParameter("form", false, false, "hide_layers", query, &params.HideLayers); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "hide_layers", Err: err})
		return
	}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetFrame(w, r, params)
	})
}

// ComputeFrame operation middleware
func (siw *ServerInterfaceWrapper) ComputeFrame(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.ComputeFrame)
}

// RenderMap operation middleware
func (siw *ServerInterfaceWrapper) RenderMap(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.RenderMap)
}

func (siw *ServerInterfaceWrapper) serve(w http.ResponseWriter, r *http.Request, fn http.HandlerFunc) {
	var handler http.Handler = fn
	for _, middleware := range siw.HandlerMiddlewares {
		handler = middleware(handler)
	}
	handler.ServeHTTP(w, r)
}

// InvalidParamFormatError is passed to the error handler when a query
// parameter is missing or malformed
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

// ChiServerOptions configures the router built by HandlerWithOptions
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// Handler creates http.Handler with routing matching the API.
func Handler(si ServerInterface) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{})
}

// HandlerWithOptions creates http.Handler with additional options
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter

	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}

	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/health", wrapper.GetHealth)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/frame", wrapper.GetFrame)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/frame", wrapper.ComputeFrame)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/render", wrapper.RenderMap)
	})

	return r
}
