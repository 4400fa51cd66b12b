package models

import "time"

// Notification is what the web client shows as a toast.
type Notification struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Variant     string `json:"variant,omitempty"`
}

const VariantDestructive = "destructive"

type SessionState string

const (
	StateIdle          SessionState = "idle"
	StateAwaitingReply SessionState = "awaiting-reply"
	StateError         SessionState = "error"
)

type SessionView struct {
	UserID       string        `json:"user_id"`
	RequestID    *string       `json:"request_id"`
	Protocol     string        `json:"protocol,omitempty"`
	Status       RequestStatus `json:"status,omitempty"`
	State        SessionState  `json:"state"`
	Transcript   []Message     `json:"messages"`
	Notification *Notification `json:"notification,omitempty"`
}

type SubmitMessageRequest struct {
	Content string `json:"content"`
}

type DocumentStatus string

const (
	DocUploading  DocumentStatus = "uploading"
	DocProcessing DocumentStatus = "processing"
	DocCompleted  DocumentStatus = "completed"
	DocError      DocumentStatus = "error"
)

type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}

type DocumentProgress struct {
	UploadID      string         `json:"upload_id"`
	Name          string         `json:"name"`
	Type          string         `json:"type"`
	Status        DocumentStatus `json:"status"`
	AnalysisID    string         `json:"analysis_id,omitempty"`
	ExtractedData *JSONDocument  `json:"extracted_data,omitempty"`
	Error         string         `json:"error,omitempty"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type IntakeResult struct {
	RequestID     string             `json:"request_id"`
	Documents     []DocumentProgress `json:"documents"`
	Notifications []Notification     `json:"notifications,omitempty"`
}

type DecisionRequest struct {
	Status RequestStatus `json:"status"`
	Notes  string        `json:"notes"`
}

type RequestDetail struct {
	Request          *BenefitRequest    `json:"request"`
	ValidDocuments   []DocumentAnalysis `json:"valid_documents"`
	InvalidDocuments []DocumentAnalysis `json:"invalid_documents"`
}

type ProtocolForm struct {
	Name         string `json:"name"`
	CPF          string `json:"cpf"`
	Address      string `json:"address"`
	AffectedArea string `json:"affected_area"`
}

type ProtocolReceipt struct {
	Protocol  string    `json:"protocol"`
	IssuedAt  time.Time `json:"issued_at"`
	NextSteps []string  `json:"next_steps"`
}

type ProtocolStatus struct {
	Protocol     string        `json:"protocol"`
	Status       RequestStatus `json:"status"`
	BenefitType  string        `json:"benefit_type"`
	CreatedAt    time.Time     `json:"created_at"`
	DecisionDate *time.Time    `json:"decision_date,omitempty"`
}

type DocumentStats struct {
	Processed      int     `json:"documents_processed"`
	Valid          int     `json:"valid"`
	WithProblems   int     `json:"with_problems"`
	ValidationRate float64 `json:"validation_rate"`
}

type RequestStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}
