package handler

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/kursadbilgin/index-notifier/internal/domain"
	"github.com/kursadbilgin/index-notifier/internal/observability"
	"github.com/kursadbilgin/index-notifier/internal/service"
)

type RunService interface {
	Run(ctx context.Context) (*service.RunResult, error)
}

type RunHandler struct {
	service RunService
}

func NewRunHandler(service RunService) (*RunHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("run service is required")
	}
	return &RunHandler{service: service}, nil
}

func RegisterRunRoutes(router fiber.Router, service RunService) error {
	h, err := NewRunHandler(service)
	if err != nil {
		return err
	}

	router.Post("/run", h.Run)
	return nil
}

// RegisterMetricsRoute serves the Prometheus registry on /metrics.
func RegisterMetricsRoute(router fiber.Router, metrics *observability.Metrics) {
	router.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
}

type runItemResponse struct {
	URL         string `json:"url"`
	Status      string `json:"status"`
	HTTPStatus  int    `json:"httpStatus,omitempty"`
	Message     string `json:"message,omitempty"`
	LedgerError string `json:"ledgerError,omitempty"`
}

type runResponse struct {
	RunID          string            `json:"runId"`
	Classification string            `json:"classification"`
	Discovered     int               `json:"discovered"`
	Created        int               `json:"created"`
	SuccessCount   int               `json:"successCount"`
	FailureCount   int               `json:"failureCount"`
	MailSent       bool              `json:"mailSent"`
	Results        []runItemResponse `json:"results"`
}

// Run executes one batch synchronously and returns its report.
func (h *RunHandler) Run(c *fiber.Ctx) error {
	result, err := h.service.Run(c.UserContext())
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(toRunResponse(result))
}

func toRunResponse(result *service.RunResult) runResponse {
	report := result.Report
	resp := runResponse{
		RunID:          result.RunID,
		Classification: report.Classification().String(),
		Discovered:     result.Discovered,
		Created:        len(result.Reconcile.Created),
		SuccessCount:   report.SuccessCount,
		FailureCount:   report.FailureCount,
		MailSent:       result.MailError == nil,
		Results:        make([]runItemResponse, 0, len(report.Items)),
	}

	for _, item := range report.Items {
		entry := runItemResponse{
			URL:         item.URL,
			Status:      "failure",
			HTTPStatus:  item.HTTPStatus,
			Message:     item.ErrorDetail,
			LedgerError: item.LedgerError,
		}
		if item.Outcome == domain.OutcomeSucceeded {
			entry.Status = "success"
		}
		resp.Results = append(resp.Results, entry)
	}

	return resp
}
