package apperr

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Message string            `json:"message"`
	Status  int               `json:"status"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// Respond writes err as a structured JSON body. Errors outside the taxonomy,
// and internal ones, are logged in full and reported without detail.
func Respond(c *gin.Context, logger *zap.SugaredLogger, err error) {
	var ae *Error
	if !errors.As(err, &ae) || ae.Kind == KindInternal {
		logger.Errorw("Request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", err,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Message: "internal server error",
			Status:  http.StatusInternalServerError,
		})
		return
	}

	status := ae.Kind.Status()
	c.AbortWithStatusJSON(status, ErrorResponse{
		Message: ae.Message,
		Status:  status,
		Errors:  ae.Fields,
	})
}

// FromBinding converts a gin binding error into a field-level validation error.
func FromBinding(err error) *Error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[lowerFirst(fe.Field())] = describe(fe)
		}
		return Validation("validation failed", fields)
	}
	if errors.Is(err, io.EOF) {
		return Validation("request body is required", nil)
	}
	return Validation("invalid request body", nil)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
