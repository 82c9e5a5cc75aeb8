package handler

import (
	"sweetshop/internal/apperror"
	"sweetshop/internal/validation"
	"sweetshop/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// bindAndValidate decodes the JSON body into req and runs its rules
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, req); err != nil {
		logger.FromContext(c).Debug("Invalid request body", zap.Error(err))
		return apperror.Validation([]apperror.FieldError{{Field: "body", Message: "must be a valid JSON object"}})
	}
	return c.Validate(req)
}

// pathID parses the :id path parameter
func pathID(c echo.Context) (uuid.UUID, error) {
	return validation.ParseID(c.Param("id"))
}
