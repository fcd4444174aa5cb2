package forge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/assetsmith/assetsmith/internal/history"
	"github.com/assetsmith/assetsmith/internal/platform/errors"
)

const (
	defaultPollInterval    = 5 * time.Second
	defaultPollDeadline    = 300 * time.Second
	defaultMaxPollFailures = 3
	defaultSavePath        = "./assets/generated_asset.png"
)

// GenerateParams is the caller-supplied description of one generation job.
// Zero values on the sized fields select the service defaults; optional
// fields are pointers and omitted from the submission when nil.
type GenerateParams struct {
	Prompt         string
	GenerationType string // CREATE, EDIT, UPSCALE, IMAGE_TO_3D, ...
	Width          int
	Height         int
	Quality        string // LOW, MEDIUM, HIGH
	Steps          int
	GuidanceScale  float64
	NegativePrompt string

	Seed            *int64
	Creativity      *float64
	Resemblance     *float64
	UpscaleRatio    *float64
	DurationSeconds *float64
	Transparency    *bool
	Tileability     *bool
	IncludeTextures *bool
	FaceLimit       *int

	InputFiles        []string
	SavePath          string
	WaitForCompletion bool
}

// Outcome is the terminal result of one orchestration call. It is populated
// even when an error is returned so partial progress (elapsed time, last
// observed status) is never discarded.
type Outcome struct {
	JobID        string
	Status       Status
	OutputPath   string
	BytesWritten int64
	Elapsed      time.Duration
	Warnings     []string
}

// OrchestratorOptions tunes the polling loop. Zero values select the
// production defaults (5s interval, 300s deadline, 3 consecutive failures).
type OrchestratorOptions struct {
	PollInterval    time.Duration
	PollDeadline    time.Duration
	MaxPollFailures int
}

// Orchestrator drives one generation job from submission to a terminal
// outcome: upload inputs, submit, poll, download. One call owns one job; no
// state is shared across concurrent calls.
type Orchestrator struct {
	client          *Client
	transfer        *Transfer
	ledger          history.Store
	workspaceID     string
	logger          zerolog.Logger
	tracer          trace.Tracer
	pollInterval    time.Duration
	pollDeadline    time.Duration
	maxPollFailures int
}

// NewOrchestrator builds an orchestrator. ledger may be nil to disable the
// job history.
func NewOrchestrator(client *Client, transfer *Transfer, ledger history.Store, workspaceID string, logger zerolog.Logger, opts OrchestratorOptions) *Orchestrator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.PollDeadline <= 0 {
		opts.PollDeadline = defaultPollDeadline
	}
	if opts.MaxPollFailures <= 0 {
		opts.MaxPollFailures = defaultMaxPollFailures
	}
	return &Orchestrator{
		client:          client,
		transfer:        transfer,
		ledger:          ledger,
		workspaceID:     workspaceID,
		logger:          logger,
		tracer:          otel.Tracer("forge"),
		pollInterval:    opts.PollInterval,
		pollDeadline:    opts.PollDeadline,
		maxPollFailures: opts.MaxPollFailures,
	}
}

// Generate runs one job end to end and records its terminal outcome in the
// ledger. The returned Outcome always carries whatever progress was made.
func (o *Orchestrator) Generate(ctx context.Context, params GenerateParams) (Outcome, error) {
	ctx, span := o.tracer.Start(ctx, "forge.generate")
	defer span.End()

	params.Prompt = strings.TrimSpace(params.Prompt)
	if params.Prompt == "" {
		return Outcome{}, errors.New(errors.CodeValidationPromptEmpty, "a prompt is required")
	}
	if params.GenerationType == "" {
		params.GenerationType = "CREATE"
	}
	if params.SavePath == "" {
		params.SavePath = defaultSavePath
	}
	span.SetAttributes(attribute.String("forge.generation_type", params.GenerationType))

	var warnings []string
	var fileRefs []map[string]any
	if len(params.InputFiles) > 0 {
		uploaded, failed := o.uploadBatch(ctx, params.InputFiles)
		if len(uploaded) == 0 {
			return Outcome{}, errors.WithMetadata(errors.CodeValidationUploadsFailed,
				fmt.Sprintf("all %d input uploads failed: %s", len(failed), strings.Join(failed, "; ")),
				map[string]string{"failed": fmt.Sprint(len(failed))})
		}
		for _, failure := range failed {
			warnings = append(warnings, "upload failed: "+failure)
		}
		for _, file := range uploaded {
			fileRefs = append(fileRefs, map[string]any{"url": file.RemoteURL})
		}
	}

	job, err := o.client.CreateInference(ctx, o.workspaceID, buildParameters(params, fileRefs))
	if err != nil {
		return Outcome{Warnings: warnings}, err
	}
	o.logger.Info().Str("job_id", job.ID).Str("status", string(job.Status)).Msg("generation submitted")

	if !params.WaitForCompletion {
		outcome := Outcome{JobID: job.ID, Status: job.Status, Warnings: warnings}
		o.record(ctx, params, outcome, nil)
		return outcome, nil
	}

	outcome, err := o.await(ctx, job, params.SavePath)
	outcome.Warnings = append(warnings, outcome.Warnings...)
	o.record(ctx, params, outcome, err)
	return outcome, err
}

// Status performs a single status poll without waiting.
func (o *Orchestrator) Status(ctx context.Context, jobID string) (Job, error) {
	return o.client.InferenceByID(ctx, jobID)
}

// uploadBatch uploads every path, collecting failures per file instead of
// short-circuiting; the caller decides what a partially failed batch means.
func (o *Orchestrator) uploadBatch(ctx context.Context, paths []string) (uploaded []UploadedFile, failed []string) {
	for _, path := range paths {
		file, err := o.transfer.Upload(ctx, path)
		if err != nil {
			o.logger.Warn().Err(err).Str("path", path).Msg("input upload failed")
			failed = append(failed, fmt.Sprintf("%s (%v)", path, err))
			continue
		}
		uploaded = append(uploaded, file)
	}
	return uploaded, failed
}

// await polls the job on a fixed interval until it reaches a terminal state,
// the deadline passes, or the consecutive-failure cap trips. Intermittent
// poll failures do not accumulate: any successful poll resets the counter.
func (o *Orchestrator) await(ctx context.Context, job Job, savePath string) (Outcome, error) {
	start := time.Now()
	lastStatus := job.Status
	consecutive := 0
	var lastErr error

	for {
		if elapsed := time.Since(start); elapsed >= o.pollDeadline {
			return Outcome{JobID: job.ID, Status: lastStatus, Elapsed: elapsed},
				errors.WithMetadata(errors.CodeTimeoutGeneration,
					fmt.Sprintf("generation timed out after %s (last status %s)", elapsed.Round(time.Second), lastStatus),
					map[string]string{"last_status": string(lastStatus)})
		}

		polled, err := o.client.InferenceByID(ctx, job.ID)
		if err != nil {
			consecutive++
			lastErr = err
			o.logger.Warn().Err(err).Int("consecutive", consecutive).Msg("status poll failed")
			if consecutive >= o.maxPollFailures {
				elapsed := time.Since(start)
				return Outcome{JobID: job.ID, Status: lastStatus, Elapsed: elapsed},
					errors.Wrap(errors.CodePollAborted,
						fmt.Sprintf("aborted after %d consecutive poll failures", consecutive), lastErr)
			}
		} else {
			consecutive = 0
			lastStatus = polled.Status

			switch polled.Status {
			case StatusComplete:
				return o.finish(ctx, polled, savePath, time.Since(start))
			case StatusFailed, StatusCancelled:
				elapsed := time.Since(start)
				o.logger.Info().Str("job_id", job.ID).Str("status", string(polled.Status)).
					Dur("elapsed", elapsed).Msg("generation reached terminal state")
				return Outcome{JobID: job.ID, Status: polled.Status, Elapsed: elapsed}, nil
			}
		}

		select {
		case <-ctx.Done():
			elapsed := time.Since(start)
			return Outcome{JobID: job.ID, Status: lastStatus, Elapsed: elapsed},
				errors.Wrap(errors.CodePollAborted,
					fmt.Sprintf("cancelled after %s with status %s", elapsed.Round(time.Second), lastStatus), ctx.Err())
		case <-time.After(o.pollInterval):
		}
	}
}

// finish downloads the first output file of a completed job. Completing with
// no files is a success with a warning, not a failure.
func (o *Orchestrator) finish(ctx context.Context, job Job, savePath string, elapsed time.Duration) (Outcome, error) {
	outcome := Outcome{JobID: job.ID, Status: StatusComplete, Elapsed: elapsed}
	if len(job.Files) == 0 {
		outcome.Warnings = append(outcome.Warnings, "generation completed but produced no files")
		return outcome, nil
	}

	file := job.Files[0]
	name := file.Name
	if name == "" {
		name = "result_" + job.ID
	}
	path, written, err := o.transfer.Download(ctx, file.URL, savePath, file.ContentType, name)
	if err != nil {
		return outcome, err
	}
	outcome.OutputPath = path
	outcome.BytesWritten = written
	return outcome, nil
}

// record appends the terminal outcome to the job ledger. Ledger failures are
// logged and swallowed; the ledger is diagnostic, not authoritative.
func (o *Orchestrator) record(ctx context.Context, params GenerateParams, outcome Outcome, err error) {
	if o.ledger == nil {
		return
	}

	status := string(outcome.Status)
	if err != nil {
		status = strings.ToUpper(string(errors.ClassOf(err)))
	}

	rec := history.Record{
		ID:             uuid.NewString(),
		JobID:          outcome.JobID,
		Prompt:         params.Prompt,
		GenerationType: params.GenerationType,
		Status:         status,
		OutputPath:     outcome.OutputPath,
		Warnings:       len(outcome.Warnings),
		ElapsedMS:      outcome.Elapsed.Milliseconds(),
		CreatedAt:      time.Now().UTC(),
	}
	if appendErr := o.ledger.Append(ctx, rec); appendErr != nil {
		o.logger.Warn().Err(appendErr).Msg("append job history")
	}
}

// buildParameters shapes the submission payload. Sized fields are clamped to
// the ranges the service accepts rather than rejected.
func buildParameters(p GenerateParams, fileRefs []map[string]any) map[string]any {
	width, height := p.Width, p.Height
	if width == 0 {
		width = 512
	}
	if height == 0 {
		height = 512
	}
	steps := p.Steps
	if steps == 0 {
		steps = 20
	}
	guidance := p.GuidanceScale
	if guidance == 0 {
		guidance = 7.5
	}
	quality := p.Quality
	if quality == "" {
		quality = "HIGH"
	}

	parameters := map[string]any{
		"generationType":    p.GenerationType,
		"prompt":            p.Prompt,
		"width":             clampInt(width, 64, 2048),
		"height":            clampInt(height, 64, 2048),
		"quality":           quality,
		"numInferenceSteps": clampInt(steps, 1, 100),
		"guidanceScale":     clampFloat(guidance, 1.0, 20.0),
	}

	if p.NegativePrompt != "" {
		parameters["negativePrompt"] = strings.TrimSpace(p.NegativePrompt)
	}
	if p.Seed != nil {
		parameters["seed"] = *p.Seed
	}
	if p.Creativity != nil {
		parameters["creativity"] = clampFloat(*p.Creativity, 0.0, 1.0)
	}
	if p.Resemblance != nil {
		parameters["resemblance"] = clampFloat(*p.Resemblance, 0.0, 1.0)
	}
	if p.UpscaleRatio != nil {
		parameters["upscaleRatio"] = clampFloat(*p.UpscaleRatio, 1.0, 8.0)
	}
	if p.DurationSeconds != nil {
		parameters["durationSeconds"] = clampFloat(*p.DurationSeconds, 1.0, 60.0)
	}
	if p.Transparency != nil {
		parameters["transparency"] = *p.Transparency
	}
	if p.Tileability != nil {
		parameters["tileability"] = *p.Tileability
	}
	if p.IncludeTextures != nil {
		parameters["includeTextures"] = *p.IncludeTextures
	}
	if p.FaceLimit != nil {
		parameters["faceLimit"] = clampInt(*p.FaceLimit, 100, 10000)
	}
	if len(fileRefs) > 0 {
		parameters["files"] = fileRefs
	}
	return parameters
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
