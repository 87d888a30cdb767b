// Файл: internal/controllers/report_controller.go
package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"license-system/internal/entities"
	"license-system/internal/services"
	"license-system/pkg/utils"
)

// exportLimit — потолок строк для выгрузки в xlsx.
const exportLimit = 100000

type ReportController struct {
	alertService services.AlertServiceInterface
	logger       *zap.Logger
}

func NewReportController(alertService services.AlertServiceInterface, logger *zap.Logger) *ReportController {
	return &ReportController{alertService: alertService, logger: logger}
}

// GetAlertReport — отчёт по алертам организации: JSON по умолчанию,
// xlsx при ?format=xlsx.
func (c *ReportController) GetAlertReport(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	orgID, err := parseOrgID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	format := strings.ToLower(ctx.QueryParam("format"))
	c.logger.Debug("Запрос на отчет по алертам",
		zap.Uint64("organization_id", orgID),
		zap.String("format", format),
	)

	alerts, total, err := c.alertService.List(reqCtx, orgID,
		ctx.QueryParam("status"), ctx.QueryParam("type"),
		exportLimit, 0)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if format == "xlsx" {
		return c.respondWithXLSX(ctx, alerts)
	}

	return utils.SuccessResponse(ctx, alerts, "Отчет по алертам успешно сформирован", http.StatusOK, total)
}

var alertReportHeaders = []string{
	"№", "Тип", "Важность", "Статус", "Заголовок",
	"Потенциальная экономия", "Валюта", "Создан", "Взят в работу", "Закрыт", "Заметки",
}

func alertRowToSlice(n int, item entities.Alert) []interface{} {
	dateFmt := "02.01.2006 15:04"
	var createdAt, acknowledgedAt, closedAt, notes string
	if item.CreatedAt != nil {
		createdAt = item.CreatedAt.Format(dateFmt)
	}
	if item.AcknowledgedAt != nil {
		acknowledgedAt = item.AcknowledgedAt.Format(dateFmt)
	}
	if item.ResolvedAt != nil {
		closedAt = item.ResolvedAt.Format(dateFmt)
	} else if item.DismissedAt != nil {
		closedAt = item.DismissedAt.Format(dateFmt)
	}
	if item.ResolutionNotes != nil {
		notes = *item.ResolutionNotes
	}

	return []interface{}{
		n, item.Type, item.Severity, item.Status, item.Title,
		fmt.Sprintf("%.2f", float64(item.PotentialSavingsMinor)/100), item.Currency,
		createdAt, acknowledgedAt, closedAt, notes,
	}
}

func (c *ReportController) respondWithXLSX(ctx echo.Context, data []entities.Alert) error {
	f := excelize.NewFile()
	sheet := "Отчет по алертам"
	f.SetSheetName("Sheet1", sheet)
	f.SetSheetRow(sheet, "A1", &alertReportHeaders)
	style, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellStyle(sheet, "A1", "K1", style)

	for i, item := range data {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := alertRowToSlice(i+1, item)
		f.SetSheetRow(sheet, cell, &row)
	}
	f.SetColWidth(sheet, "B", "D", 18)
	f.SetColWidth(sheet, "E", "E", 50)
	f.SetColWidth(sheet, "F", "G", 14)
	f.SetColWidth(sheet, "H", "J", 18)
	f.SetColWidth(sheet, "K", "K", 40)

	fileName := fmt.Sprintf("alerts_%s.xlsx", time.Now().Format("2006-01-02"))
	ctx.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Response().Header().Set("Content-Disposition", "attachment; filename="+fileName)
	ctx.Response().WriteHeader(http.StatusOK)
	return f.Write(ctx.Response().Writer)
}
