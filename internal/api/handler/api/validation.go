// internal/api/handler/api/validation.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/edgeval/internal/api/job"
	"github.com/newthinker/edgeval/internal/api/response"
	"github.com/newthinker/edgeval/internal/app"
	"github.com/newthinker/edgeval/internal/backtest"
	"github.com/newthinker/edgeval/internal/core"
	"github.com/newthinker/edgeval/internal/meta"
	"go.uber.org/zap"
)

const (
	validationTimeout = 10 * time.Minute
	validationJobType = "validation"
	dateLayout        = "2006-01-02"
)

// Validator runs validations and post-processes their reports.
// *app.App satisfies it.
type Validator interface {
	Validate(ctx context.Context, req app.Request) (*backtest.Report, error)
	SaveReport(ctx context.Context, r *backtest.Report) (string, error)
	CanReview() bool
	Review(ctx context.Context, r *backtest.Report) (*meta.Review, error)
	Notify(ctx context.Context, r *backtest.Report, reportKey string) map[string]error
}

// JobGauge receives the number of unfinished jobs.
type JobGauge interface {
	SetJobsActive(jobType string, count int)
}

// ValidationRequest is the request body for starting a validation.
type ValidationRequest struct {
	Strategy string   `json:"strategy"`
	Symbols  []string `json:"symbols"`
	Start    string   `json:"start"`
	End      string   `json:"end"`
	Source   string   `json:"source,omitempty"`
	HoldDays int      `json:"hold_days,omitempty"`
	Seed     *uint64  `json:"seed,omitempty"`
	Save     bool     `json:"save,omitempty"`
	Review   bool     `json:"review,omitempty"`
	Notify   bool     `json:"notify,omitempty"`
}

// ValidationResult is stored on a completed job.
type ValidationResult struct {
	Report    *backtest.Report `json:"report"`
	ReportKey string           `json:"report_key,omitempty"`
	Review    *meta.Review     `json:"review,omitempty"`
	Warnings  []string         `json:"warnings,omitempty"`
}

// ValidationHandler handles validation API requests.
type ValidationHandler struct {
	jobStore  *job.Store
	validator Validator
	gauge     JobGauge
	logger    *zap.Logger
	timeout   time.Duration
}

// NewValidationHandler creates a new validation handler. gauge may be nil.
func NewValidationHandler(jobStore *job.Store, validator Validator, gauge JobGauge, logger *zap.Logger) *ValidationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ValidationHandler{
		jobStore:  jobStore,
		validator: validator,
		gauge:     gauge,
		logger:    logger,
		timeout:   validationTimeout,
	}
}

// parse checks the request body and converts it to an app.Request.
func (req ValidationRequest) parse() (app.Request, error) {
	if req.Strategy == "" {
		return app.Request{}, core.WrapError(core.ErrConfigMissing, errors.New("strategy is required"))
	}

	symbols := make([]string, 0, len(req.Symbols))
	for _, s := range req.Symbols {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, strings.ToUpper(s))
		}
	}
	if len(symbols) == 0 {
		return app.Request{}, core.WrapError(core.ErrConfigMissing, errors.New("at least one symbol is required"))
	}

	start, err := time.Parse(dateLayout, req.Start)
	if err != nil {
		return app.Request{}, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("start: %w", err))
	}
	end, err := time.Parse(dateLayout, req.End)
	if err != nil {
		return app.Request{}, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("end: %w", err))
	}
	if !end.After(start) {
		return app.Request{}, core.WrapError(core.ErrConfigInvalid, errors.New("end must be after start"))
	}
	if req.HoldDays < 0 {
		return app.Request{}, core.WrapError(core.ErrConfigInvalid, errors.New("hold_days must not be negative"))
	}

	return app.Request{
		Strategy: req.Strategy,
		Symbols:  symbols,
		Start:    start,
		End:      end,
		Source:   req.Source,
		HoldDays: req.HoldDays,
		Seed:     req.Seed,
	}, nil
}

// Create starts a new validation job.
func (h *ValidationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body ValidationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrConfigInvalid, err))
		return
	}

	req, err := body.parse()
	if err != nil {
		response.Fail(w, err)
		return
	}
	if body.Review && !h.validator.CanReview() {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrConfigMissing, errors.New("review requested but no LLM provider is configured")))
		return
	}

	j := h.jobStore.Create(validationJobType)
	h.publishActive()

	go h.run(j.ID, req, body)

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id": j.ID,
		"status": j.Status,
	})
}

// run executes the validation and records the outcome on the job.
func (h *ValidationHandler) run(jobID string, req app.Request, opts ValidationRequest) {
	defer h.publishActive()

	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusRunning
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	rpt, err := h.validator.Validate(ctx, req)
	if err != nil {
		h.logger.Warn("validation failed",
			zap.String("job_id", jobID),
			zap.String("strategy", req.Strategy),
			zap.Error(err))
		h.fail(jobID, err)
		return
	}

	result := &ValidationResult{Report: rpt}
	if opts.Save {
		key, err := h.validator.SaveReport(ctx, rpt)
		if err != nil {
			h.logger.Warn("saving report failed", zap.String("job_id", jobID), zap.Error(err))
			result.Warnings = append(result.Warnings, "report not saved: "+err.Error())
		}
		result.ReportKey = key
	}
	if opts.Review {
		rv, err := h.validator.Review(ctx, rpt)
		if err != nil {
			h.logger.Warn("review failed", zap.String("job_id", jobID), zap.Error(err))
			result.Warnings = append(result.Warnings, "review unavailable: "+err.Error())
		}
		result.Review = rv
	}
	if opts.Notify {
		for name, err := range h.validator.Notify(ctx, rpt, result.ReportKey) {
			result.Warnings = append(result.Warnings, fmt.Sprintf("notifier %s: %v", name, err))
		}
	}

	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusComplete
		j.Result = result
	})
}

func (h *ValidationHandler) fail(jobID string, err error) {
	var coreErr *core.Error
	if !errors.As(err, &coreErr) {
		coreErr = core.WrapError(core.ErrStrategyFailed, err)
	}
	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusFailed
		j.Error = coreErr
	})
}

func (h *ValidationHandler) publishActive() {
	if h.gauge != nil {
		h.gauge.SetJobsActive(validationJobType, h.jobStore.Active())
	}
}

// GetStatus returns the status of a validation job.
func (h *ValidationHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobStore.Get(r.PathValue("id"))
	if err != nil {
		response.Error(w, http.StatusNotFound, err)
		return
	}

	resp := map[string]any{
		"job_id":     j.ID,
		"status":     j.Status,
		"created_at": j.CreatedAt,
		"updated_at": j.UpdatedAt,
	}

	if j.Status == job.StatusComplete {
		resp["result"] = j.Result
	}
	if j.Status == job.StatusFailed && j.Error != nil {
		detail := map[string]string{
			"code":    j.Error.Code,
			"message": j.Error.Message,
		}
		if j.Error.Cause != nil {
			detail["cause"] = j.Error.Cause.Error()
		}
		resp["error"] = detail
	}

	response.JSON(w, http.StatusOK, resp)
}
