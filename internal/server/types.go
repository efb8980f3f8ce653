// Package server provides the HTTP surface of the make-video API.
// It includes the handler, middleware, routes, and DTOs separated from domain types.
package server

import "github.com/maauso/make-video-api/internal/video"

// MakeVideoRequest is the HTTP request body for rendering a video.
type MakeVideoRequest struct {
	// ImageURL is the still image to animate.
	ImageURL string `json:"imageUrl" validate:"required"`
	// AudioURL is the audio track to mux in.
	AudioURL string `json:"audioUrl" validate:"required"`
	// Duration is the image loop length in seconds. Defaults to 8.
	Duration float64 `json:"duration"`
	// CompanyName is used only in the download filename. Defaults to "Company".
	CompanyName string `json:"companyName"`
	// Day is used only in the download filename. Defaults to 1.
	Day int `json:"day"`
}

// toVideoRequest maps the DTO to the domain request.
func (r MakeVideoRequest) toVideoRequest() video.Request {
	return video.Request{
		ImageURL:    r.ImageURL,
		AudioURL:    r.AudioURL,
		Duration:    r.Duration,
		CompanyName: r.CompanyName,
		Day:         r.Day,
	}
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Details carries the underlying cause for render failures.
	Details string `json:"details,omitempty"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
