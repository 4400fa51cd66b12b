package models

import (
	"time"
)

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// Decided reports whether a reviewer has already ruled on the request.
func (s RequestStatus) Decided() bool {
	return s == StatusApproved || s == StatusRejected
}

func (s RequestStatus) Valid() bool {
	return s == StatusPending || s.Decided()
}

const BenefitTypeReconstruction = "auxilio_reconstrucao"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a transcript.
type Message struct {
	Role    string `json:"role" db:"role"`
	Content string `json:"content" db:"content"`
}

type BenefitRequest struct {
	ID            string        `json:"id" db:"id"`
	UserID        string        `json:"user_id" db:"user_id"`
	UserName      string        `json:"user_name" db:"user_name"`
	Protocol      string        `json:"protocol" db:"protocol"`
	BenefitType   string        `json:"benefit_type" db:"benefit_type"`
	Status        RequestStatus `json:"status" db:"status"`
	DecisionNotes *string       `json:"decision_notes,omitempty" db:"decision_notes"`
	DecisionDate  *time.Time    `json:"decision_date,omitempty" db:"decision_date"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`

	Transcript []Message `json:"chat_messages,omitempty" db:"-"`
}

type DocumentAnalysis struct {
	ID             string       `json:"id" db:"id"`
	RequestID      string       `json:"request_id" db:"request_id"`
	DocumentName   string       `json:"document_name" db:"document_name"`
	ContentType    string       `json:"content_type" db:"content_type"`
	StorageKey     *string      `json:"storage_key,omitempty" db:"storage_key"`
	AnalysisResult JSONDocument `json:"analysis_result" db:"analysis_result"`
	IsValid        *bool        `json:"is_valid" db:"is_valid"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
}

type UserRole struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Role      string    `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

const RoleAgent = "agent"
