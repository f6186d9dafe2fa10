package middleware

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskboard/internal/apperr"
)

// ParamID parses a positive numeric path parameter.
func ParamID(c *gin.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation(fmt.Sprintf("invalid %s", name), map[string]string{name: "must be a positive integer"})
	}
	return id, nil
}
