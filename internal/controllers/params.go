// Файл: internal/controllers/params.go
package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	apperrors "license-system/pkg/errors"
)

func parseOrgID(ctx echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(ctx.Param("org_id"), 10, 64)
	if err != nil {
		return 0, apperrors.NewHttpError(
			http.StatusBadRequest,
			"Неверный ID организации",
			err,
			map[string]interface{}{"param": ctx.Param("org_id")},
		)
	}
	return id, nil
}
