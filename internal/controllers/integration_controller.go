// Файл: internal/controllers/integration_controller.go
package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"license-system/internal/services"
	apperrors "license-system/pkg/errors"
	"license-system/pkg/utils"
)

type IntegrationController struct {
	syncService services.SyncServiceInterface
	logger      *zap.Logger
}

func NewIntegrationController(syncService services.SyncServiceInterface, logger *zap.Logger) *IntegrationController {
	return &IntegrationController{
		syncService: syncService,
		logger:      logger.Named("integration_controller"),
	}
}

func (c *IntegrationController) parseID(ctx echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return 0, apperrors.NewHttpError(
			http.StatusBadRequest,
			"Неверный ID интеграции",
			err,
			map[string]interface{}{"param": ctx.Param("id")},
		)
	}
	return id, nil
}

// GetIntegrations — активные интеграции провайдера. Токены наружу
// не уходят: поля помечены `json:"-"` на сущности.
func (c *IntegrationController) GetIntegrations(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	provider := ctx.QueryParam("provider")
	if provider == "" {
		provider = "workspace"
	}

	integrations, err := c.syncService.ListIntegrations(reqCtx, provider)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, integrations, "Интеграции получены", http.StatusOK, uint64(len(integrations)))
}

// TestConnection — проверка учётных данных интеграции минимальным
// чтением из каталога. Интеграция в статусе pending активируется.
func (c *IntegrationController) TestConnection(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	id, err := c.parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if err := c.syncService.TestIntegration(reqCtx, id); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, nil, "Подключение к каталогу успешно проверено", http.StatusOK)
}

// TriggerSync — ручной запуск синхронизации одной интеграции.
// Сама синхронизация идёт в фоне, запрос отвечается сразу.
func (c *IntegrationController) TriggerSync(ctx echo.Context) error {
	id, err := c.parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	go func() {
		bgCtx, cancel := services.NewBackgroundContext()
		defer cancel()
		if err := c.syncService.TriggerSync(bgCtx, id); err != nil {
			c.logger.Error("Фоновая синхронизация интеграции завершилась с ошибкой",
				zap.Uint64("integration_id", id),
				zap.Error(err),
			)
		}
	}()

	return utils.SuccessResponse(ctx, nil, "Синхронизация запущена", http.StatusAccepted)
}
