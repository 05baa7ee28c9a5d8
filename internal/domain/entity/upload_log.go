package entity

import "time"

// UploadStateFailedPersistence is the terminal state of an attempt that hit a
// store failure. Such attempts may be retried from the same source.
const UploadStateFailedPersistence = "FAILED_PERSISTENCE"

// UploadLog is an append-only record of one ingestion attempt
type UploadLog struct {
	ID           string    `json:"id" bson:"_id"`
	AccountID    string    `json:"accountId,omitempty" bson:"accountId,omitempty"`
	Sender       string    `json:"sender" bson:"sender"`
	Subject      string    `json:"subject" bson:"subject"`
	Source       string    `json:"source" bson:"source"`
	SourceRef    string    `json:"sourceRef,omitempty" bson:"sourceRef,omitempty"`
	State        string    `json:"state" bson:"state"`
	Success      bool      `json:"success" bson:"success"`
	TripID       string    `json:"tripId,omitempty" bson:"tripId,omitempty"`
	QuarantineID string    `json:"quarantineId,omitempty" bson:"quarantineId,omitempty"`
	ErrorDetail  string    `json:"errorDetail,omitempty" bson:"errorDetail,omitempty"`
	Warnings     []string  `json:"warnings,omitempty" bson:"warnings,omitempty"`
	Prompt       string    `json:"prompt,omitempty" bson:"prompt,omitempty"`
	Response     string    `json:"response,omitempty" bson:"response,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// Settled reports whether the attempt is final for its source reference
func (l *UploadLog) Settled() bool {
	return l.Success || l.State != UploadStateFailedPersistence
}
