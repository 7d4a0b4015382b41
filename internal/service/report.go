package service

import "github.com/kursadbilgin/index-notifier/internal/domain"

// BuildReport aggregates processed items into a run report. Items keep their processing order;
// anything not succeeded counts as a failure.
func BuildReport(items []domain.BatchItem) domain.RunReport {
	report := domain.RunReport{
		Items: make([]domain.BatchItem, len(items)),
	}
	copy(report.Items, items)

	for _, item := range items {
		if item.Outcome == domain.OutcomeSucceeded {
			report.SuccessCount++
			continue
		}
		report.FailureCount++
	}

	return report
}
