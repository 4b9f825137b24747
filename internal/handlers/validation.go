package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/charlesng35/catalog/pkg/errors"
	"github.com/charlesng35/catalog/pkg/response"
	appValidator "github.com/charlesng35/catalog/pkg/validator"
)

// bindAndValidate binds the JSON payload into dest and runs struct validation rules.
// When validation fails, an error response is automatically written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}
	return validatePayload(c, dest)
}

// validatePayload runs struct validation on an already bound payload.
func validatePayload(c *gin.Context, dest any) bool {
	if err := appValidator.ValidateStruct(dest); err != nil {
		if ve, ok := err.(appValidator.ValidationErrors); ok && len(ve) > 0 {
			response.ErrorWithDetails(c, appErrors.NewBadRequest(formatValidationError(err)), ve)
			return false
		}
		response.Error(c, appErrors.NewBadRequest(formatValidationError(err)))
		return false
	}
	return true
}

func formatValidationError(err error) string {
	if err == nil {
		return "invalid request payload"
	}

	if ve, ok := err.(appValidator.ValidationErrors); ok {
		if len(ve) == 0 {
			return "invalid request payload"
		}

		messages := make([]string, 0, len(ve))
		for _, failure := range ve {
			messages = append(messages, describeFailure(failure))
		}
		return strings.Join(messages, "; ")
	}

	return "invalid request payload"
}

func describeFailure(failure appValidator.ValidationError) string {
	field := prettifyFieldName(failure.Field)
	list := failure.Kind == "slice" || failure.Kind == "array"

	switch failure.Tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		if list {
			return fmt.Sprintf("%s must contain at least %s items", field, failure.Param)
		}
		return fmt.Sprintf("%s must be at least %s characters", field, failure.Param)
	case "max":
		if list {
			return fmt.Sprintf("%s must contain at most %s items", field, failure.Param)
		}
		return fmt.Sprintf("%s must be at most %s characters", field, failure.Param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, failure.Param)
	case "password":
		return fmt.Sprintf("%s must be at least 6 characters and include uppercase, lowercase, number and special symbol", field)
	case "personname":
		return fmt.Sprintf("%s can only contain letters and spaces", field)
	case "productcode":
		return fmt.Sprintf("%s can only contain letters, numbers and hyphens", field)
	case "otp":
		return fmt.Sprintf("%s must be a 4-digit number", field)
	default:
		if failure.Param != "" {
			return fmt.Sprintf("%s failed validation: %s=%s", field, failure.Tag, failure.Param)
		}
		return fmt.Sprintf("%s failed validation: %s", field, failure.Tag)
	}
}

// prettifyFieldName turns "smartIconsText[1]" into "smart icons text[1]".
func prettifyFieldName(name string) string {
	if name == "" {
		return "field"
	}
	name = strings.ReplaceAll(name, "_", " ")

	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// parseIDParam reads a positive numeric path parameter. On failure a 400 is written
// and ok is false.
func parseIDParam(c *gin.Context, key string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(key))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		response.Error(c, appErrors.NewBadRequest(fmt.Sprintf("invalid %s", key)))
		return 0, false
	}
	return uint(id), true
}
