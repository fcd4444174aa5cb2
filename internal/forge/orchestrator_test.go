package forge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/assetsmith/assetsmith/internal/platform/errors"
)

// graphQLRequest is the decoded body of one control-plane call, captured so
// tests can assert on what was submitted.
type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func testOrchestrator(t *testing.T, handler http.HandlerFunc, opts OrchestratorOptions) *Orchestrator {
	t.Helper()
	client := testClient(t, handler)
	transfer := NewTransfer(client, "ws-1", "https://media.example.com", nil, zerolog.Nop())
	return NewOrchestrator(client, transfer, nil, "ws-1", zerolog.Nop(), opts)
}

func fastPolling() OrchestratorOptions {
	return OrchestratorOptions{
		PollInterval: time.Millisecond,
		PollDeadline: time.Second,
	}
}

func TestBuildParametersDefaults(t *testing.T) {
	params := buildParameters(GenerateParams{Prompt: "a wall", GenerationType: "CREATE"}, nil)

	if params["width"] != 512 || params["height"] != 512 {
		t.Fatalf("size defaults = %v x %v, want 512 x 512", params["width"], params["height"])
	}
	if params["numInferenceSteps"] != 20 {
		t.Fatalf("steps default = %v, want 20", params["numInferenceSteps"])
	}
	if params["guidanceScale"] != 7.5 {
		t.Fatalf("guidance default = %v, want 7.5", params["guidanceScale"])
	}
	if params["quality"] != "HIGH" {
		t.Fatalf("quality default = %v, want HIGH", params["quality"])
	}
	for _, absent := range []string{"negativePrompt", "seed", "creativity", "files", "faceLimit"} {
		if _, ok := params[absent]; ok {
			t.Errorf("parameter %s present without a value, want omitted", absent)
		}
	}
}

func TestBuildParametersClamps(t *testing.T) {
	creativity := 1.5
	upscale := 0.5
	faceLimit := 50
	duration := 600.0
	params := buildParameters(GenerateParams{
		Prompt:          "a wall",
		GenerationType:  "UPSCALE",
		Width:           10000,
		Height:          8,
		Steps:           500,
		GuidanceScale:   99,
		Creativity:      &creativity,
		UpscaleRatio:    &upscale,
		FaceLimit:       &faceLimit,
		DurationSeconds: &duration,
	}, nil)

	if params["width"] != 2048 {
		t.Errorf("width = %v, want clamped to 2048", params["width"])
	}
	if params["height"] != 64 {
		t.Errorf("height = %v, want clamped to 64", params["height"])
	}
	if params["numInferenceSteps"] != 100 {
		t.Errorf("steps = %v, want clamped to 100", params["numInferenceSteps"])
	}
	if params["guidanceScale"] != 20.0 {
		t.Errorf("guidance = %v, want clamped to 20", params["guidanceScale"])
	}
	if params["creativity"] != 1.0 {
		t.Errorf("creativity = %v, want clamped to 1", params["creativity"])
	}
	if params["upscaleRatio"] != 1.0 {
		t.Errorf("upscaleRatio = %v, want clamped to 1", params["upscaleRatio"])
	}
	if params["faceLimit"] != 100 {
		t.Errorf("faceLimit = %v, want clamped to 100", params["faceLimit"])
	}
	if params["durationSeconds"] != 60.0 {
		t.Errorf("durationSeconds = %v, want clamped to 60", params["durationSeconds"])
	}
}

func TestGenerateRequiresPrompt(t *testing.T) {
	orch := testOrchestrator(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty prompt")
	}, fastPolling())

	_, err := orch.Generate(context.Background(), GenerateParams{Prompt: "  "})
	if errors.CodeOf(err) != errors.CodeValidationPromptEmpty {
		t.Fatalf("CodeOf(err) = %s, want %s", errors.CodeOf(err), errors.CodeValidationPromptEmpty)
	}
}

func TestGenerateWithoutWait(t *testing.T) {
	var polls atomic.Int32
	orch := testOrchestrator(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		json.NewDecoder(r.Body).Decode(&req)
		switch {
		case strings.Contains(req.Query, "createInference"):
			w.Write([]byte(`{"data": {"createInference": {"id": "job-9", "status": "QUEUED"}}}`))
		default:
			polls.Add(1)
			w.Write([]byte(`{"data": {"getInferencesById": {"inferences": []}}}`))
		}
	}, fastPolling())

	outcome, err := orch.Generate(context.Background(), GenerateParams{Prompt: "a wall"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if outcome.JobID != "job-9" {
		t.Fatalf("JobID = %q, want job-9", outcome.JobID)
	}
	if outcome.Status != StatusPending {
		t.Fatalf("Status = %s, want %s (QUEUED maps to pending)", outcome.Status, StatusPending)
	}
	if polls.Load() != 0 {
		t.Fatalf("status polled %d times without wait, want 0", polls.Load())
	}
}

func TestGenerateSubmissionRejected(t *testing.T) {
	orch := testOrchestrator(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"createInference": {"message": "workspace is out of credits"}}}`))
	}, fastPolling())

	_, err := orch.Generate(context.Background(), GenerateParams{Prompt: "a wall", WaitForCompletion: true})
	if errors.CodeOf(err) != errors.CodeRemoteRejected {
		t.Fatalf("CodeOf(err) = %s, want %s", errors.CodeOf(err), errors.CodeRemoteRejected)
	}
}

func TestGenerateWaitsForCompletion(t *testing.T) {
	artifact := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("final-pixels"))
	}))
	t.Cleanup(artifact.Close)

	var polls atomic.Int32
	orch := testOrchestrator(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		json.NewDecoder(r.Body).Decode(&req)
		switch {
		case strings.Contains(req.Query, "createInference"):
			w.Write([]byte(`{"data": {"createInference": {"id": "job-1", "status": "PENDING"}}}`))
		default:
			if polls.Add(1) < 3 {
				w.Write([]byte(`{"data": {"getInferencesById": {"inferences": [{"id": "job-1", "status": "IN_PROGRESS"}]}}}`))
				return
			}
			fmt.Fprintf(w, `{"data": {"getInferencesById": {"inferences": [{"id": "job-1", "status": "COMPLETE", "files": [{"id": "f1", "url": %q, "name": "result_job-1.png", "contentType": "image/png"}]}]}}}`, artifact.URL)
		}
	}, fastPolling())

	dir := t.TempDir()
	outcome, err := orch.Generate(context.Background(), GenerateParams{
		Prompt:            "a wall",
		WaitForCompletion: true,
		SavePath:          dir + string(os.PathSeparator),
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if outcome.Status != StatusComplete {
		t.Fatalf("Status = %s, want %s", outcome.Status, StatusComplete)
	}
	if want := filepath.Join(dir, "result_job-1.png"); outcome.OutputPath != want {
		t.Fatalf("OutputPath = %q, want %q", outcome.OutputPath, want)
	}
	if outcome.BytesWritten != int64(len("final-pixels")) {
		t.Fatalf("BytesWritten = %d", outcome.BytesWritten)
	}
}

func TestGenerateCompleteWithoutFiles(t *testing.T) {
	orch := testOrchestrator(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		json.NewDecoder(r.Body).Decode(&req)
		if strings.Contains(req.Query, "createInference") {
			w.Write([]byte(`{"data": {"createInference": {"id": "job-1", "status": "PENDING"}}}`))
			return
		}
		w.Write([]byte(`{"data": {"getInferencesById": {"inferences": [{"id": "job-1", "status": "COMPLETE"}]}}}`))
	}, fastPolling())

	outcome, err := orch.Generate(context.Background(), GenerateParams{Prompt: "a wall", WaitForCompletion: true})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(outcome.Warnings) != 1 {
		t.Fatalf("Warnings = %v, want one warning about missing files", outcome.Warnings)
	}
	if outcome.OutputPath != "" {
		t.Fatalf("OutputPath = %q, want empty", outcome.OutputPath)
	}
}

func TestGenerateFailedJobIsNotAnError(t *testing.T) {
	orch := testOrchestrator(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		json.NewDecoder(r.Body).Decode(&req)
		if strings.Contains(req.Query, "createInference") {
			w.Write([]byte(`{"data": {"createInference": {"id": "job-1", "status": "PENDING"}}}`))
			return
		}
		w.Write([]byte(`{"data": {"getInferencesById": {"inferences": [{"id": "job-1", "status": "FAILED"}]}}}`))
	}, fastPolling())

	outcome, err := orch.Generate(context.Background(), GenerateParams{Prompt: "a wall", WaitForCompletion: true})
	if err != nil {
		t.Fatalf("Generate() error = %v, want nil for a failed job", err)
	}
	if outcome.Status != StatusFailed {
		t.Fatalf("Status = %s, want %s", outcome.Status, StatusFailed)
	}
}

func TestGenerateTimesOut(t *testing.T) {
	orch := testOrchestrator(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		json.NewDecoder(r.Body).Decode(&req)
		if strings.Contains(req.Query, "createInference") {
			w.Write([]byte(`{"data": {"createInference": {"id": "job-1", "status": "PENDING"}}}`))
			return
		}
		w.Write([]byte(`{"data": {"getInferencesById": {"inferences": [{"id": "job-1", "status": "RUNNING"}]}}}`))
	}, OrchestratorOptions{PollInterval: time.Millisecond, PollDeadline: 50 * time.Millisecond})

	outcome, err := orch.Generate(context.Background(), GenerateParams{Prompt: "a wall", WaitForCompletion: true})
	if errors.CodeOf(err) != errors.CodeTimeoutGeneration {
		t.Fatalf("CodeOf(err) = %s, want %s", errors.CodeOf(err), errors.CodeTimeoutGeneration)
	}
	if outcome.Status != StatusRunning {
		t.Fatalf("Status = %s, want last observed %s", outcome.Status, StatusRunning)
	}
	if outcome.Elapsed <= 0 {
		t.Fatal("Elapsed not reported on timeout")
	}
}

func TestGenerateAbortsAfterConsecutivePollFailures(t *testing.T) {
	var polls atomic.Int32
	orch := testOrchestrator(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		json.NewDecoder(r.Body).Decode(&req)
		if strings.Contains(req.Query, "createInference") {
			w.Write([]byte(`{"data": {"createInference": {"id": "job-1", "status": "PENDING"}}}`))
			return
		}
		polls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}, fastPolling())

	_, err := orch.Generate(context.Background(), GenerateParams{Prompt: "a wall", WaitForCompletion: true})
	if errors.CodeOf(err) != errors.CodePollAborted {
		t.Fatalf("CodeOf(err) = %s, want %s", errors.CodeOf(err), errors.CodePollAborted)
	}
	// Three aborted polls, each retried three times by the transport.
	if got := polls.Load(); got != 9 {
		t.Fatalf("server saw %d status calls, want 9", got)
	}
}

func TestGenerateIntermittentPollFailuresRecover(t *testing.T) {
	var polls atomic.Int32
	orch := testOrchestrator(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		json.NewDecoder(r.Body).Decode(&req)
		if strings.Contains(req.Query, "createInference") {
			w.Write([]byte(`{"data": {"createInference": {"id": "job-1", "status": "PENDING"}}}`))
			return
		}
		// Three whole polls fail (each burning its transport retries), but a
		// successful poll in between resets the consecutive-failure counter,
		// so the loop survives to see COMPLETE.
		switch n := polls.Add(1); n {
		case 4, 8:
			w.Write([]byte(`{"data": {"getInferencesById": {"inferences": [{"id": "job-1", "status": "RUNNING"}]}}}`))
		case 12:
			w.Write([]byte(`{"data": {"getInferencesById": {"inferences": [{"id": "job-1", "status": "COMPLETE"}]}}}`))
		default:
			http.Error(w, "blip", http.StatusBadGateway)
		}
	}, fastPolling())

	outcome, err := orch.Generate(context.Background(), GenerateParams{Prompt: "a wall", WaitForCompletion: true})
	if err != nil {
		t.Fatalf("Generate() error = %v, want recovery from isolated poll failures", err)
	}
	if outcome.Status != StatusComplete {
		t.Fatalf("Status = %s, want %s", outcome.Status, StatusComplete)
	}
}

func TestGenerateCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	orch := testOrchestrator(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		json.NewDecoder(r.Body).Decode(&req)
		if strings.Contains(req.Query, "createInference") {
			w.Write([]byte(`{"data": {"createInference": {"id": "job-1", "status": "PENDING"}}}`))
			return
		}
		w.Write([]byte(`{"data": {"getInferencesById": {"inferences": [{"id": "job-1", "status": "RUNNING"}]}}}`))
		time.AfterFunc(50*time.Millisecond, cancel)
	}, OrchestratorOptions{PollInterval: time.Minute, PollDeadline: time.Hour})

	outcome, err := orch.Generate(ctx, GenerateParams{Prompt: "a wall", WaitForCompletion: true})
	if errors.CodeOf(err) != errors.CodePollAborted {
		t.Fatalf("CodeOf(err) = %s, want %s", errors.CodeOf(err), errors.CodePollAborted)
	}
	if outcome.Status != StatusRunning {
		t.Fatalf("Status = %s, want last observed %s", outcome.Status, StatusRunning)
	}
}

func TestGeneratePartialUploadFailureProceeds(t *testing.T) {
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(media.Close)

	var submitted []any
	handler := func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		json.NewDecoder(r.Body).Decode(&req)
		switch {
		case strings.Contains(req.Query, "createUploadUrls"):
			fmt.Fprintf(w, `{"data": {"createUploadUrls": {"uploadUrls": [{"url": %q, "fileId": "f"}]}}}`, media.URL)
		case strings.Contains(req.Query, "createInference"):
			input := req.Variables["input"].(map[string]any)
			parameters := input["parameters"].(map[string]any)
			if files, ok := parameters["files"].([]any); ok {
				submitted = files
			}
			w.Write([]byte(`{"data": {"createInference": {"id": "job-1", "status": "PENDING"}}}`))
		}
	}

	dir := t.TempDir()
	good1 := filepath.Join(dir, "a.png")
	good2 := filepath.Join(dir, "b.png")
	for _, p := range []string{good1, good2} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	missing := filepath.Join(dir, "missing.png")

	orch := testOrchestrator(t, handler, fastPolling())
	outcome, err := orch.Generate(context.Background(), GenerateParams{
		Prompt:     "a wall",
		InputFiles: []string{good1, missing, good2},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v, want partial upload failure to proceed", err)
	}
	if len(outcome.Warnings) != 1 {
		t.Fatalf("Warnings = %v, want one upload warning", outcome.Warnings)
	}
	if len(submitted) != 2 {
		t.Fatalf("submission carried %d file refs, want 2", len(submitted))
	}
}

func TestGenerateAllUploadsFailedAborts(t *testing.T) {
	var inferences atomic.Int32
	orch := testOrchestrator(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		json.NewDecoder(r.Body).Decode(&req)
		if strings.Contains(req.Query, "createInference") {
			inferences.Add(1)
		}
		w.Write([]byte(`{"data": {}}`))
	}, fastPolling())

	dir := t.TempDir()
	_, err := orch.Generate(context.Background(), GenerateParams{
		Prompt:     "a wall",
		InputFiles: []string{filepath.Join(dir, "no1.png"), filepath.Join(dir, "no2.png")},
	})
	if errors.CodeOf(err) != errors.CodeValidationUploadsFailed {
		t.Fatalf("CodeOf(err) = %s, want %s", errors.CodeOf(err), errors.CodeValidationUploadsFailed)
	}
	if inferences.Load() != 0 {
		t.Fatal("job submitted despite every upload failing")
	}
}
