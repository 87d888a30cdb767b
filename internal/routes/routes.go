// Файл: internal/routes/routes.go
package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"license-system/internal/controllers"
	"license-system/internal/services"
)

// InitRouter вешает HTTP-поверхность на готовые сервисы. Сервисы
// собираются в main: они нужны не только роутеру, но и планировщику
// с воркерами.
func InitRouter(
	e *echo.Echo,
	alertService services.AlertServiceInterface,
	syncService services.SyncServiceInterface,
	logger *zap.Logger,
) {
	logger.Info("InitRouter: Начало создания маршрутов")

	api := e.Group("/api")

	alertCtrl := controllers.NewAlertController(alertService, logger)
	integrationCtrl := controllers.NewIntegrationController(syncService, logger)
	reportCtrl := controllers.NewReportController(alertService, logger)

	runAlertRouter(api, alertCtrl, reportCtrl)
	runIntegrationRouter(api, integrationCtrl)

	logger.Info("InitRouter: Маршруты созданы")
}

func runAlertRouter(api *echo.Group, alertCtrl *controllers.AlertController, reportCtrl *controllers.ReportController) {
	api.GET("/organizations/:org_id/alerts", alertCtrl.GetAlerts)
	api.GET("/organizations/:org_id/alerts/summary", alertCtrl.GetSummary)
	api.POST("/organizations/:org_id/alerts/generate", alertCtrl.GenerateAlerts)
	api.GET("/organizations/:org_id/alerts/report", reportCtrl.GetAlertReport)

	api.POST("/alerts/:id/acknowledge", alertCtrl.Acknowledge)
	api.POST("/alerts/:id/resolve", alertCtrl.Resolve)
	api.POST("/alerts/:id/dismiss", alertCtrl.Dismiss)
	api.POST("/alerts/:id/snooze", alertCtrl.Snooze)
	api.POST("/alerts/:id/unsnooze", alertCtrl.Unsnooze)
}

func runIntegrationRouter(api *echo.Group, integrationCtrl *controllers.IntegrationController) {
	api.GET("/integrations", integrationCtrl.GetIntegrations)
	api.POST("/integrations/:id/test-connection", integrationCtrl.TestConnection)
	api.POST("/integrations/:id/sync", integrationCtrl.TriggerSync)
}
