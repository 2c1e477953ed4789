package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/khimraj/budget-planner/internal/agent"
	"github.com/khimraj/budget-planner/internal/api/middleware"
	"github.com/khimraj/budget-planner/internal/jobs"
	"github.com/khimraj/budget-planner/internal/store"
)

// maxUploadBytes bounds the size of an uploaded statement.
const maxUploadBytes = 10 << 20

// UploadsHandler handles statement upload endpoints.
type UploadsHandler struct {
	publisher jobs.Publisher
	uploadDir string
	log       zerolog.Logger
}

// NewUploadsHandler creates a new uploads handler.
func NewUploadsHandler(publisher jobs.Publisher, uploadDir string, log zerolog.Logger) *UploadsHandler {
	return &UploadsHandler{
		publisher: publisher,
		uploadDir: uploadDir,
		log:       log,
	}
}

// Upload handles POST /api/upload
//
// The raw file is saved as-is and a normalization job is enqueued; the
// response carries the job ID so the client can poll for progress.
func (h *UploadsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "A 'file' form field is required")
		return
	}
	defer file.Close()

	uploadID := uuid.NewString()
	rawPath := filepath.Join(h.uploadDir, uploadID+"-"+filepath.Base(header.Filename))

	if err := h.saveFile(rawPath, file); err != nil {
		h.log.Error().Err(err).Str("path", rawPath).Msg("Failed to save upload")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save upload")
		return
	}

	job := &jobs.NormalizeUploadJob{
		UploadID: uploadID,
		RawPath:  rawPath,
	}
	if err := h.publisher.PublishNormalizeUpload(ctx, job); err != nil {
		h.log.Error().Err(err).Str("upload_id", uploadID).Msg("Failed to enqueue normalization job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue normalization job")
		return
	}

	h.log.Info().
		Str("upload_id", uploadID).
		Str("job_id", job.JobID).
		Str("filename", header.Filename).
		Msg("Upload accepted")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"upload_id": uploadID,
		"job_id":    job.JobID,
		"status":    string(job.Status),
	})
}

func (h *UploadsHandler) saveFile(path string, src io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}

	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return dst.Close()
}

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	store *store.Store
	log   zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(store *store.Store, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		store: store,
		log:   log,
	}
}

type transactionResponse struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	table, err := h.store.Reload(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load transactions")
		return
	}

	// Return array directly for frontend compatibility
	rows := make([]transactionResponse, 0, table.Len())
	for _, t := range table.Rows {
		rows = append(rows, transactionResponse{
			Date:        t.Date.String(),
			Description: t.Description,
			Amount:      t.Amount.StringFixed(2),
			Category:    t.Category,
		})
	}
	middleware.WriteJSON(w, http.StatusOK, rows)
}

// ChatHandler handles the conversational endpoint.
type ChatHandler struct {
	responder *agent.Responder
	log       zerolog.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(responder *agent.Responder, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		responder: responder,
		log:       log,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Message string        `json:"message"`
	History []chatMessage `json:"history"`
}

type chatResponse struct {
	Reply   string        `json:"reply"`
	History []chatMessage `json:"history"`
}

// Chat handles POST /api/chat
//
// The client carries the conversation history; tool exchanges are kept
// server-side only for the duration of the request.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Message is required")
		return
	}

	history := make([]agent.Turn, 0, len(req.History))
	for _, m := range req.History {
		role := agent.Role(m.Role)
		if role != agent.RoleUser && role != agent.RoleAssistant {
			middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid history role %q", m.Role))
			return
		}
		history = append(history, agent.Turn{Role: role, Content: m.Content})
	}

	var reply strings.Builder
	extended, err := h.responder.Respond(ctx, history, req.Message, func(c agent.Chunk) {
		reply.WriteString(c.Delta)
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Chat exchange failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Chat exchange failed")
		return
	}

	resp := chatResponse{Reply: reply.String()}
	for _, t := range extended {
		if t.Role != agent.RoleUser && !t.Final() {
			continue
		}
		resp.History = append(resp.History, chatMessage{Role: string(t.Role), Content: t.Content})
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		UploadID: query.Get("upload_id"),
		Status:   jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
