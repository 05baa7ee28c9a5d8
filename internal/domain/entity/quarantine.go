package entity

import (
	"time"
)

// Quarantine entry lifecycle
const (
	QuarantinePending      = "PENDING"
	QuarantineForcedImport = "FORCED_IMPORT"
)

// Validation verdict status
const (
	VerdictValid    = "VALID"
	VerdictRejected = "REJECTED"
)

// ValidationVerdict is the outcome of the validation gate
type ValidationVerdict struct {
	Status      string  `json:"status" bson:"status"`
	Score       float64 `json:"score" bson:"score"`
	Reason      string  `json:"reason" bson:"reason"`
	Explanation string  `json:"explanation" bson:"explanation"`
}

// Valid reports whether the document may proceed to extraction
func (v ValidationVerdict) Valid() bool {
	return v.Status == VerdictValid
}

// RawPayload is the inbound document as received, kept for replay
type RawPayload struct {
	From        string       `json:"from" bson:"from"`
	Subject     string       `json:"subject" bson:"subject"`
	TextBody    string       `json:"textBody" bson:"textBody"`
	HTMLBody    string       `json:"htmlBody,omitempty" bson:"htmlBody,omitempty"`
	Attachments []Attachment `json:"attachments" bson:"attachments"`
}

// QuarantineEntry is a document rejected by validation, pending operator review
type QuarantineEntry struct {
	ID          string            `json:"id" bson:"_id"`
	AccountID   string            `json:"accountId" bson:"accountId"`
	UserEmail   string            `json:"userEmail" bson:"userEmail"`
	Subject     string            `json:"subject" bson:"subject"`
	ReceivedAt  time.Time         `json:"receivedAt" bson:"receivedAt"`
	Source      string            `json:"source" bson:"source"`
	RawPayload  RawPayload        `json:"rawPayload" bson:"rawPayload"`
	Validation  ValidationVerdict `json:"validation" bson:"validation"`
	Status      string            `json:"status" bson:"status"`
	TripID      string            `json:"tripId,omitempty" bson:"tripId,omitempty"`
	ForcedAt    *time.Time        `json:"forcedAt,omitempty" bson:"forcedAt,omitempty"`
	ForcedBy    string            `json:"forcedBy,omitempty" bson:"forcedBy,omitempty"`
	ClaimedBy   string            `json:"-" bson:"claimedBy,omitempty"`
	ClaimedAt   *time.Time        `json:"-" bson:"claimedAt,omitempty"`
	UploadLogID string            `json:"uploadLogId,omitempty" bson:"uploadLogId,omitempty"`
}

// QuarantineFilter narrows a quarantine listing
type QuarantineFilter struct {
	Status    string
	AccountID string
	Limit     int
}
