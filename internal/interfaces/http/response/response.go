package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	domainerrors "hostelhub.backend/internal/domain/errors"
	"hostelhub.backend/pkg/logger"
)

// Success sends a success response
func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// Error sends an error response. Bare sentinels are mapped to their HTTP
// status; anything unknown is logged and reported as an internal error.
func Error(c *gin.Context, err error) {
	appErr := resolve(c, err)
	c.JSON(appErr.Status, body(appErr))
}

// Abort is Error for middleware: it stops the handler chain.
func Abort(c *gin.Context, err error) {
	appErr := resolve(c, err)
	c.AbortWithStatusJSON(appErr.Status, body(appErr))
}

// ErrorWithError sends an error response with a specific status and message
func ErrorWithError(c *gin.Context, status int, code string, message string) {
	c.JSON(status, gin.H{
		"code":    code,
		"message": message,
	})
}

func resolve(c *gin.Context, err error) *domainerrors.AppError {
	appErr := domainerrors.FromError(err)
	if appErr.Status >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
	}
	return appErr
}

func body(appErr *domainerrors.AppError) gin.H {
	return gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
	}
}
