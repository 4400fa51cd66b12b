package models

import "encoding/json"

type ChatRelayRequest struct {
	Messages []Message `json:"messages"`
}

type ChatRelayResponse struct {
	Response string `json:"response"`
}

type ExtractionRelayRequest struct {
	Image    string `json:"image"`
	Filename string `json:"filename"`
	// ContentType is the media type used in the image data URI. Defaults to image/jpeg.
	ContentType string `json:"content_type,omitempty"`
	// Text carries text already pulled out of the document, used when there is no image.
	Text string `json:"text,omitempty"`
}

type ExtractionRelayResponse struct {
	Filename      string          `json:"filename"`
	ExtractedData json.RawMessage `json:"extracted_data"`
	// Structured is false when ExtractedData is the raw-text fallback.
	Structured bool `json:"-"`
}

// RawTextFallback is the container used when the model's reply is not valid JSON.
type RawTextFallback struct {
	RawText string `json:"raw_text"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
