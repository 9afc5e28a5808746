package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/escrowly/internal/app"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/commands"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/queries"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
	"github.com/felixgeelhaar/escrowly/pkg/observability"
)

// EscrowHandler handles priority, project and points requests.
type EscrowHandler struct {
	getTopTask       *queries.GetTopTaskHandler
	listRanked       *queries.ListRankedHandler
	explainPriority  *queries.ExplainPriorityHandler
	listProjects     *queries.ListProjectsHandler
	getProject       *queries.GetProjectHandler
	getBalance       *queries.GetBalanceHandler
	listTransactions *queries.ListTransactionsHandler

	saveProject       *commands.SaveProjectHandler
	recordTransaction *commands.RecordTransactionHandler

	logger *slog.Logger
}

// EscrowHandlerConfig holds the dependencies for EscrowHandler.
type EscrowHandlerConfig struct {
	GetTopTask       *queries.GetTopTaskHandler
	ListRanked       *queries.ListRankedHandler
	ExplainPriority  *queries.ExplainPriorityHandler
	ListProjects     *queries.ListProjectsHandler
	GetProject       *queries.GetProjectHandler
	GetBalance       *queries.GetBalanceHandler
	ListTransactions *queries.ListTransactionsHandler

	SaveProject       *commands.SaveProjectHandler
	RecordTransaction *commands.RecordTransactionHandler

	Logger *slog.Logger
}

// EscrowHandlerConfigFrom takes the handlers out of a wired container.
func EscrowHandlerConfigFrom(c *app.Container) EscrowHandlerConfig {
	return EscrowHandlerConfig{
		GetTopTask:        c.GetTopTaskHandler,
		ListRanked:        c.ListRankedHandler,
		ExplainPriority:   c.ExplainPriorityHandler,
		ListProjects:      c.ListProjectsHandler,
		GetProject:        c.GetProjectHandler,
		GetBalance:        c.GetBalanceHandler,
		ListTransactions:  c.ListTransactionsHandler,
		SaveProject:       c.SaveProjectHandler,
		RecordTransaction: c.RecordTransactionHandler,
		Logger:            c.Logger,
	}
}

// NewEscrowHandler creates a new handler.
func NewEscrowHandler(cfg EscrowHandlerConfig) *EscrowHandler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &EscrowHandler{
		getTopTask:        cfg.GetTopTask,
		listRanked:        cfg.ListRanked,
		explainPriority:   cfg.ExplainPriority,
		listProjects:      cfg.ListProjects,
		getProject:        cfg.GetProject,
		getBalance:        cfg.GetBalance,
		listTransactions:  cfg.ListTransactions,
		saveProject:       cfg.SaveProject,
		recordTransaction: cfg.RecordTransaction,
		logger:            logger,
	}
}

// fail logs unexpected errors and writes the mapped API error.
func (h *EscrowHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	apiErr := toAPIError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		observability.LogOperation(h.logger, r.Pattern).ErrorContext(r.Context(), msg, "error", err)
	}
	writeAPIError(w, apiErr)
}

func viewer(r *http.Request) queries.ViewerQuery {
	v, _ := ViewerFromContext(r.Context())
	return v
}

// GetTopTask handles GET /api/v1/priority/top. It answers 204 when the
// viewer has nothing actionable.
func (h *EscrowHandler) GetTopTask(w http.ResponseWriter, r *http.Request) {
	result, err := h.getTopTask.Handle(r.Context(), queries.GetTopTaskQuery{ViewerQuery: viewer(r)})
	if err != nil {
		h.fail(w, r, "failed to select top task", err)
		return
	}
	if result == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListRanked handles GET /api/v1/priority/ranked.
func (h *EscrowHandler) ListRanked(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r, "limit", 0)
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}

	ranked, err := h.listRanked.Handle(r.Context(), queries.ListRankedQuery{
		ViewerQuery: viewer(r),
		Limit:       limit,
	})
	if err != nil {
		h.fail(w, r, "failed to rank projects", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"projects": ranked,
		"total":    len(ranked),
	})
}

// ExplainPriority handles GET /api/v1/priority/{projectID}/explain.
func (h *EscrowHandler) ExplainPriority(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "projectID")
	if !ok {
		return
	}

	explanation, err := h.explainPriority.Handle(r.Context(), queries.ExplainPriorityQuery{
		ViewerQuery: viewer(r),
		ProjectID:   id,
	})
	if err != nil {
		h.fail(w, r, "failed to explain priority", err)
		return
	}
	writeJSON(w, http.StatusOK, explanation)
}

// ListProjects handles GET /api/v1/projects.
func (h *EscrowHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	q := queries.ListProjectsQuery{Status: r.URL.Query().Get("status")}

	limit, err := parseIntParam(r, "limit", 0)
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	q.Limit = limit

	mine, err := parseBoolParam(r, "mine", false)
	if err != nil {
		writeError(w, http.StatusBadRequest, "mine must be a boolean")
		return
	}
	if mine {
		q.ClientID = viewer(r).ViewerID
	}

	projects, err := h.listProjects.Handle(r.Context(), q)
	if err != nil {
		h.fail(w, r, "failed to list projects", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"projects": projects,
		"total":    len(projects),
	})
}

// GetProject handles GET /api/v1/projects/{projectID}.
func (h *EscrowHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "projectID")
	if !ok {
		return
	}

	project, err := h.getProject.Handle(r.Context(), id)
	if err != nil {
		h.fail(w, r, "failed to get project", err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// saveProjectRequest is the body of POST /api/v1/projects. Absent fields
// are left unchanged on update.
type saveProjectRequest struct {
	ID              *uuid.UUID `json:"id"`
	Title           *string    `json:"title"`
	Description     *string    `json:"description"`
	Status          *string    `json:"status"`
	ContractorID    *uuid.UUID `json:"contractor_id"`
	DueDate         *time.Time `json:"due_date"`
	ClearDueDate    bool       `json:"clear_due_date"`
	Budget          *int64     `json:"budget"`
	UnreadMessages  *int       `json:"unread_messages"`
	MScore          *int       `json:"m_score"`
	SScore          *int       `json:"s_score"`
	NeedsEvaluation *bool      `json:"needs_evaluation"`
	Tags            []string   `json:"tags"`
}

// SaveProject handles POST /api/v1/projects. It creates a project owned
// by the viewer, or updates the one named by id.
func (h *EscrowHandler) SaveProject(w http.ResponseWriter, r *http.Request) {
	var req saveProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	v := viewer(r)
	cmd := commands.SaveProjectCommand{
		ActorID:         v.ViewerID,
		Title:           req.Title,
		Description:     req.Description,
		Status:          req.Status,
		ContractorID:    req.ContractorID,
		DueDate:         req.DueDate,
		ClearDueDate:    req.ClearDueDate,
		Budget:          req.Budget,
		UnreadMessages:  req.UnreadMessages,
		MScore:          req.MScore,
		SScore:          req.SScore,
		NeedsEvaluation: req.NeedsEvaluation,
		Tags:            req.Tags,
	}
	status := http.StatusCreated
	if req.ID != nil {
		cmd.ID = *req.ID
		status = http.StatusOK
	} else {
		cmd.ClientID = v.ViewerID
	}

	project, err := h.saveProject.Handle(r.Context(), cmd)
	if err != nil {
		h.fail(w, r, "failed to save project", err)
		return
	}
	writeJSON(w, status, queries.ToProjectDTO(project))
}

// GetBalance handles GET /api/v1/points/balance.
func (h *EscrowHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.getBalance.Handle(r.Context(), viewer(r).ViewerID)
	if err != nil {
		h.fail(w, r, "failed to read balance", err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

// ListTransactions handles GET /api/v1/points/transactions.
func (h *EscrowHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r, "limit", 0)
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	newest, err := parseBoolParam(r, "newest", true)
	if err != nil {
		writeError(w, http.StatusBadRequest, "newest must be a boolean")
		return
	}

	txs, err := h.listTransactions.Handle(r.Context(), queries.ListTransactionsQuery{
		UserID:      viewer(r).ViewerID,
		NewestFirst: newest,
		Limit:       limit,
	})
	if err != nil {
		h.fail(w, r, "failed to list transactions", err)
		return
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txs,
		"total":        len(txs),
	})
}

type recordTransactionRequest struct {
	Type      string     `json:"type"`
	Amount    int64      `json:"amount"`
	ProjectID *uuid.UUID `json:"project_id"`
}

// RecordTransaction handles POST /api/v1/points/transactions. The response
// waits for the simulated chain to confirm the transfer.
func (h *EscrowHandler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req recordTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	txType, err := domain.ParseTransactionType(req.Type)
	if err != nil {
		h.fail(w, r, "invalid transaction type", err)
		return
	}

	cmd := commands.RecordTransactionCommand{
		UserID: viewer(r).ViewerID,
		Type:   txType,
		Amount: req.Amount,
	}
	if req.ProjectID != nil {
		cmd.ProjectID = *req.ProjectID
	}

	tx, err := h.recordTransaction.Handle(r.Context(), cmd)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		h.fail(w, r, "failed to record transaction", err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, name+" must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// parseIntParam parses an integer query parameter.
func parseIntParam(r *http.Request, name string, defaultVal int) (int, error) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(val)
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string, defaultVal bool) (bool, error) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal, nil
	}
	return strconv.ParseBool(val)
}
