package domain

import "time"

// Outcome is the processing state of a batch item.
type Outcome string

const (
	OutcomePending   Outcome = "PENDING"
	OutcomeSucceeded Outcome = "SUCCEEDED"
	OutcomeFailed    Outcome = "FAILED"
)

func (o Outcome) String() string { return string(o) }

// BatchItem is one URL selected for the current run. It is never persisted.
type BatchItem struct {
	URL                    string
	PreviousLastNotifiedAt time.Time
	Outcome                Outcome
	HTTPStatus             int
	// ErrorDetail is set iff Outcome is OutcomeFailed.
	ErrorDetail string
	// LedgerError records a failed timestamp update after a successful notification.
	LedgerError string
}

func NewBatchItem(record URLRecord) BatchItem {
	return BatchItem{
		URL:                    record.URL,
		PreviousLastNotifiedAt: record.LastNotifiedAt,
		Outcome:                OutcomePending,
	}
}

func (i *BatchItem) MarkSucceeded(httpStatus int) {
	i.Outcome = OutcomeSucceeded
	i.HTTPStatus = httpStatus
	i.ErrorDetail = ""
}

func (i *BatchItem) MarkFailed(httpStatus int, detail string) {
	if detail == "" {
		detail = "notification failed"
	}
	i.Outcome = OutcomeFailed
	i.HTTPStatus = httpStatus
	i.ErrorDetail = detail
}

// Classification summarizes a run report for subject selection.
type Classification string

const (
	ClassificationAllSucceeded Classification = "ALL_SUCCEEDED"
	ClassificationHasFailures  Classification = "HAS_FAILURES"
)

func (c Classification) String() string { return string(c) }

// RunReport aggregates the outcomes of one execution in processing order.
type RunReport struct {
	Items        []BatchItem
	SuccessCount int
	FailureCount int
}

func (r RunReport) Total() int { return r.SuccessCount + r.FailureCount }

func (r RunReport) Classification() Classification {
	if r.FailureCount > 0 {
		return ClassificationHasFailures
	}
	return ClassificationAllSucceeded
}
