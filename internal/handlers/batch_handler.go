package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ach-batch-backend/internal/ach"
	"ach-batch-backend/internal/repository"
	"ach-batch-backend/internal/services/processing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const companyKey = "company_id"

type BatchHandler struct {
	service *processing.Service
	logger  *zap.Logger
}

func NewBatchHandler(s *processing.Service, logger *zap.Logger) *BatchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchHandler{service: s, logger: logger}
}

// RequireCompany rejects requests without an X-Company-ID header. Every batch
// lookup is scoped to that company.
func RequireCompany() gin.HandlerFunc {
	return func(c *gin.Context) {
		company := strings.TrimSpace(c.GetHeader("X-Company-ID"))
		if company == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "X-Company-ID header required"})
			return
		}
		c.Set(companyKey, company)
		c.Next()
	}
}

type batchResponse struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Type          string     `json:"type"`
	EffectiveDate string     `json:"effective_date"`
	ScheduledDate string     `json:"scheduled_date,omitempty"`
	Status        string     `json:"status"`
	Entries       int        `json:"entries"`
	TotalAmount   string     `json:"total_amount"`
	FailureReason string     `json:"failure_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

func toBatchResponse(b *ach.Batch) batchResponse {
	resp := batchResponse{
		ID:            b.ID,
		Name:          b.Name,
		Type:          string(b.Type),
		EffectiveDate: b.EffectiveDate.Format(ach.DateLayout),
		Status:        string(b.Status),
		Entries:       b.EntryCount,
		TotalAmount:   ach.FormatMinorUnits(b.TotalAmount),
		FailureReason: b.FailureReason,
		CreatedAt:     b.CreatedAt,
		CompletedAt:   b.CompletedAt,
	}
	if b.ScheduledDate != nil {
		resp.ScheduledDate = b.ScheduledDate.Format(ach.DateLayout)
	}
	return resp
}

type entryResponse struct {
	ID              uuid.UUID `json:"id"`
	Sequence        int       `json:"sequence"`
	TransactionType string    `json:"transaction_type"`
	AccountType     string    `json:"account_type"`
	RoutingNumber   string    `json:"routing_number"`
	AccountNumber   string    `json:"account_number"`
	Amount          string    `json:"amount"`
	ReferenceCode   string    `json:"reference_code"`
	RecipientID     string    `json:"recipient_id"`
	RecipientName   string    `json:"recipient_name,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func toEntryResponse(e *ach.Entry) entryResponse {
	return entryResponse{
		ID:              e.ID,
		Sequence:        e.Sequence,
		TransactionType: string(e.TransactionType),
		AccountType:     string(e.AccountType),
		RoutingNumber:   e.RoutingNumber,
		AccountNumber:   maskAccount(e.AccountNumber),
		Amount:          ach.FormatMinorUnits(e.Amount),
		ReferenceCode:   e.ReferenceCode,
		RecipientID:     e.RecipientID,
		RecipientName:   e.RecipientName,
		CreatedAt:       e.CreatedAt,
	}
}

// maskAccount keeps the last four characters.
func maskAccount(s string) string {
	if len(s) <= 4 {
		return s
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

func (h *BatchHandler) CreateBatch(c *gin.Context) {
	var payload struct {
		Name          string `json:"name" binding:"required,max=100"`
		Type          string `json:"type" binding:"required"`
		EffectiveDate string `json:"effective_date" binding:"required"` // "yyyy-mm-dd"
		ScheduledDate string `json:"scheduled_date"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload", "details": err.Error()})
		return
	}

	batchType, err := ach.ParseBatchType(payload.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	effective, err := ach.ParseDate(payload.EffectiveDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid effective date format, expected yyyy-mm-dd"})
		return
	}
	var scheduled *time.Time
	if payload.ScheduledDate != "" {
		d, err := ach.ParseDate(payload.ScheduledDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scheduled date format, expected yyyy-mm-dd"})
			return
		}
		scheduled = &d
	}

	batch, err := h.service.CreateBatch(c.Request.Context(), c.GetString(companyKey), processing.CreateBatchInput{
		Name:          payload.Name,
		Type:          batchType,
		EffectiveDate: effective,
		ScheduledDate: scheduled,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBatchResponse(batch))
}

func (h *BatchHandler) ListBatches(c *gin.Context) {
	filter := repository.BatchFilter{}
	if s := c.Query("status"); s != "" {
		status := ach.Status(strings.ToLower(s))
		if !status.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		filter.Status = status
	}
	if t := c.Query("type"); t != "" {
		batchType, err := ach.ParseBatchType(t)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.Type = batchType
	}
	if l := c.Query("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		filter.Limit = limit
	}

	batches, err := h.service.ListBatches(c.Request.Context(), c.GetString(companyKey), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	items := make([]batchResponse, 0, len(batches))
	for i := range batches {
		items = append(items, toBatchResponse(&batches[i]))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *BatchHandler) GetBatch(c *gin.Context) {
	batchID, ok := batchIDParam(c)
	if !ok {
		return
	}
	batch, err := h.service.GetBatch(c.Request.Context(), c.GetString(companyKey), batchID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBatchResponse(batch))
}

func (h *BatchHandler) AddEntry(c *gin.Context) {
	batchID, ok := batchIDParam(c)
	if !ok {
		return
	}

	var payload struct {
		TransactionType string `json:"transaction_type"`
		AccountType     string `json:"account_type"`
		RoutingNumber   string `json:"routing_number"`
		AccountNumber   string `json:"account_number"`
		Amount          string `json:"amount" binding:"required"` // "2500.00"
		ReferenceCode   string `json:"reference_code"`
		RecipientID     string `json:"recipient_id"`
		RecipientName   string `json:"recipient_name"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload", "details": err.Error()})
		return
	}
	amount, err := ach.ParseAmount(payload.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.service.AddEntry(c.Request.Context(), c.GetString(companyKey), batchID, processing.AddEntryInput{
		TransactionType: ach.TransactionType(strings.ToLower(strings.TrimSpace(payload.TransactionType))),
		AccountType:     ach.AccountType(strings.ToLower(strings.TrimSpace(payload.AccountType))),
		RoutingNumber:   payload.RoutingNumber,
		AccountNumber:   payload.AccountNumber,
		Amount:          amount,
		ReferenceCode:   payload.ReferenceCode,
		RecipientID:     payload.RecipientID,
		RecipientName:   payload.RecipientName,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toEntryResponse(entry))
}

func (h *BatchHandler) ListEntries(c *gin.Context) {
	batchID, ok := batchIDParam(c)
	if !ok {
		return
	}
	entries, err := h.service.ListEntries(c.Request.Context(), c.GetString(companyKey), batchID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	items := make([]entryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, toEntryResponse(&entries[i]))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *BatchHandler) ValidateBatch(c *gin.Context) {
	batchID, ok := batchIDParam(c)
	if !ok {
		return
	}
	res, err := h.service.ValidateBatch(c.Request.Context(), c.GetString(companyKey), batchID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *BatchHandler) MarkReady(c *gin.Context) {
	batchID, ok := batchIDParam(c)
	if !ok {
		return
	}
	batch, err := h.service.MarkReady(c.Request.Context(), c.GetString(companyKey), batchID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBatchResponse(batch))
}

func (h *BatchHandler) ProcessBatch(c *gin.Context) {
	batchID, ok := batchIDParam(c)
	if !ok {
		return
	}
	batch, err := h.service.ProcessBatch(c.Request.Context(), c.GetString(companyKey), batchID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBatchResponse(batch))
}

func (h *BatchHandler) History(c *gin.Context) {
	batchID, ok := batchIDParam(c)
	if !ok {
		return
	}
	items, err := h.service.History(c.Request.Context(), c.GetString(companyKey), batchID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// DownloadFile returns the stored NACHA file as plain text.
func (h *BatchHandler) DownloadFile(c *gin.Context) {
	batchID, ok := batchIDParam(c)
	if !ok {
		return
	}
	file, err := h.service.GetFile(c.Request.Context(), c.GetString(companyKey), batchID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	c.Data(http.StatusOK, "text/plain; charset=us-ascii", file.Content)
}

func batchIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("batchId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch ID"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *BatchHandler) respondError(c *gin.Context, err error) {
	var verr *processing.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":    "batch validation failed",
			"errors":   verr.Errors,
			"warnings": verr.Warnings,
		})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
	case errors.Is(err, processing.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, processing.ErrBatchNotProcessable),
		errors.Is(err, processing.ErrInvalidTransition),
		errors.Is(err, repository.ErrStatusConflict),
		errors.Is(err, repository.ErrBatchLocked):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, processing.ErrProcessingFailed):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "status": string(ach.StatusFailed)})
	default:
		_ = c.Error(err)
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
