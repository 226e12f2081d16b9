package http

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/entity"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/middleware/auth"
	pkgErrors "github.com/wekeepgrowing/stripe-cpq-connector/pkg/errors"
	"go.uber.org/zap"
)

// TranslationUsecase is the translation surface the handler drives
type TranslationUsecase interface {
	Enqueue(ctx context.Context, connectionID, recordID string) (*entity.TranslationJob, error)
	TranslateNow(ctx context.Context, connectionID, recordID string) (*entity.TranslationResult, error)
	ContractStructure(ctx context.Context, connectionID, orderID string) (*entity.ContractSummary, error)
}

// translateRequest addresses one Salesforce record by its 15 or 18 character id
type translateRequest struct {
	RecordID string `param:"id" validate:"required,alphanum,min=15,max=18"`
	Sync     bool   `query:"sync"`
}

type contractRequest struct {
	OrderID string `param:"orderId" validate:"required,alphanum,min=15,max=18"`
}

type TranslateHandler struct {
	usecase  TranslationUsecase
	validate *validator.Validate
	logger   *zap.Logger
}

func NewTranslateHandler(usecase TranslationUsecase, logger *zap.Logger) *TranslateHandler {
	return &TranslateHandler{
		usecase:  usecase,
		validate: validator.New(),
		logger:   logger,
	}
}

// RegisterRoutes mounts the translate API on an authenticated group
func (h *TranslateHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/translate/:id", h.Translate)
	g.GET("/contracts/:orderId", h.GetContract)
}

// Translate queues a translation of the record, or runs it inline when sync=true
func (h *TranslateHandler) Translate(c echo.Context) error {
	principal, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	var req translateRequest
	binder := &echo.DefaultBinder{}
	if err := binder.BindPathParams(c, &req); err != nil {
		return h.badRequest(c, "Invalid record id")
	}
	if err := binder.BindQueryParams(c, &req); err != nil {
		return h.badRequest(c, "Invalid sync parameter")
	}
	if err := h.validate.Struct(&req); err != nil {
		h.logger.Warn("Invalid translate request",
			zap.String("record_id", req.RecordID),
			zap.Error(err))
		return h.badRequest(c, "Record id must be a 15 or 18 character Salesforce id")
	}

	ctx := c.Request().Context()
	if !req.Sync {
		job, err := h.usecase.Enqueue(ctx, principal.ConnectionID, req.RecordID)
		if err != nil {
			return h.errorResponse(c, err)
		}
		return c.JSON(http.StatusAccepted, job)
	}

	result, err := h.usecase.TranslateNow(ctx, principal.ConnectionID, req.RecordID)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetContract returns the initial order and amendments of an order's contract
func (h *TranslateHandler) GetContract(c echo.Context) error {
	principal, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	var req contractRequest
	if err := (&echo.DefaultBinder{}).BindPathParams(c, &req); err != nil {
		return h.badRequest(c, "Invalid order id")
	}
	if err := h.validate.Struct(&req); err != nil {
		return h.badRequest(c, "Order id must be a 15 or 18 character Salesforce id")
	}

	summary, err := h.usecase.ContractStructure(c.Request().Context(), principal.ConnectionID, req.OrderID)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *TranslateHandler) badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{
		"error": message,
		"code":  pkgErrors.ErrInvalidArgument,
	})
}

func (h *TranslateHandler) errorResponse(c echo.Context, err error) error {
	code := pkgErrors.CodeOf(err)
	status := pkgErrors.ToHTTPStatus(code)

	message := err.Error()
	var appErr *pkgErrors.AppError
	if pkgErrors.As(err, &appErr) {
		message = appErr.Message()
	}
	if code == pkgErrors.ErrInternal {
		pkgErrors.LogError(h.logger, err, "Translate request failed", zap.String("path", c.Path()))
		message = "Internal error"
	}

	return c.JSON(status, map[string]string{
		"error": message,
		"code":  code,
	})
}
