// Файл: internal/controllers/alert_controller.go
package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"license-system/internal/dto"
	"license-system/internal/services"
	"license-system/pkg/api"
	apperrors "license-system/pkg/errors"
	"license-system/pkg/utils"
)

type AlertController struct {
	alertService services.AlertServiceInterface
	validate     *validator.Validate
	logger       *zap.Logger
}

func NewAlertController(alertService services.AlertServiceInterface, logger *zap.Logger) *AlertController {
	return &AlertController{
		alertService: alertService,
		validate:     validator.New(),
		logger:       logger.Named("alert_controller"),
	}
}

func (c *AlertController) parseID(ctx echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return 0, apperrors.NewHttpError(
			http.StatusBadRequest,
			"Неверный ID",
			err,
			map[string]interface{}{"param": ctx.Param("id")},
		)
	}
	return id, nil
}

// GetAlerts — список алертов организации с фильтрами по статусу и типу.
func (c *AlertController) GetAlerts(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	orgID, err := parseOrgID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	page, _ := strconv.Atoi(ctx.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(ctx.QueryParam("limit"))
	if limit < 1 || limit > utils.MaxLimit {
		limit = utils.DefaultLimit
	}
	offset := uint64((page - 1) * limit)

	alerts, total, err := c.alertService.List(reqCtx, orgID,
		ctx.QueryParam("status"), ctx.QueryParam("type"),
		uint64(limit), offset)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	return api.SuccessList(ctx, "Список алертов успешно получен", alerts, total, page, limit)
}

// GetSummary — сводка для дашборда: количество по статусам и экономия.
func (c *AlertController) GetSummary(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	orgID, err := parseOrgID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	summary, err := c.alertService.Summary(reqCtx, orgID)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, summary, "Сводка по алертам получена", http.StatusOK)
}

func (c *AlertController) Acknowledge(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	id, err := c.parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.AcknowledgeAlertDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат JSON", err, nil), c.logger)
	}
	if err := c.validate.Struct(payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	alert, err := c.alertService.Acknowledge(reqCtx, id, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, alert, "Алерт взят в работу", http.StatusOK)
}

func (c *AlertController) Resolve(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	id, err := c.parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.ResolveAlertDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат JSON", err, nil), c.logger)
	}
	if err := c.validate.Struct(payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	alert, err := c.alertService.Resolve(reqCtx, id, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, alert, "Алерт закрыт как решённый", http.StatusOK)
}

func (c *AlertController) Dismiss(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	id, err := c.parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.DismissAlertDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат JSON", err, nil), c.logger)
	}
	if err := c.validate.Struct(payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	alert, err := c.alertService.Dismiss(reqCtx, id, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, alert, "Алерт отклонён", http.StatusOK)
}

func (c *AlertController) Snooze(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	id, err := c.parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.SnoozeAlertDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат JSON", err, nil), c.logger)
	}
	if err := c.validate.Struct(payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	alert, err := c.alertService.Snooze(reqCtx, id, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, alert, "Алерт отложен", http.StatusOK)
}

func (c *AlertController) Unsnooze(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	id, err := c.parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	alert, err := c.alertService.Unsnooze(reqCtx, id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, alert, "Отложение алерта снято", http.StatusOK)
}

// GenerateAlerts — ручной запуск всех генераторов для организации.
func (c *AlertController) GenerateAlerts(ctx echo.Context) error {
	orgID, err := parseOrgID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	go func() {
		bgCtx, cancel := services.NewBackgroundContext()
		defer cancel()
		if err := c.alertService.GenerateAll(bgCtx, orgID); err != nil {
			c.logger.Error("Фоновая генерация алертов завершилась с ошибкой",
				zap.Uint64("organization_id", orgID),
				zap.Error(err),
			)
		}
	}()

	return utils.SuccessResponse(ctx, nil, "Генерация алертов запущена", http.StatusAccepted)
}
