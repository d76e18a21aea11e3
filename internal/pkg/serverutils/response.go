package serverutils

import (
	"strings"

	"ai-knowledgebase-be/internal/pkg/apperror"

	"github.com/go-playground/validator/v10"
)

type ApiResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func SuccessResponse(message string, data interface{}) *ApiResponse {
	return &ApiResponse{
		Message: message,
		Data:    data,
	}
}

var validate = validator.New()

// ValidateRequest checks struct tags and folds violations into one
// Validation error.
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperror.Validation("invalid request body")
	}

	var fields []string
	for _, fe := range validationErrors {
		fields = append(fields, fe.Field()+" failed on "+fe.Tag())
	}
	return apperror.Validation("validation failed: %s", strings.Join(fields, ", "))
}
