package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	domainerrors "winmore.backend/internal/domain/errors"
)

// Success sends a success response
func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// Error sends an error response. AppErrors carry their own HTTP status;
// bare domain errors are mapped to one, and anything else is a 500.
func Error(c *gin.Context, err error) {
	var appErr *domainerrors.AppError
	if !errors.As(err, &appErr) {
		appErr = domainerrors.NewAppError(statusFor(err), err.Error(), err)
	}

	c.JSON(appErr.Code, gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
		"error":   appErr.Message, // Backward compatibility
	})
}

// ErrorWithError sends an error response with a specific status and message
func ErrorWithError(c *gin.Context, status int, code string, message string) {
	c.JSON(status, gin.H{
		"code":    code,
		"message": message,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domainerrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainerrors.ErrInvalidInput),
		errors.Is(err, domainerrors.ErrUnsupportedChain),
		errors.Is(err, domainerrors.ErrUnsupportedToken):
		return http.StatusBadRequest
	case errors.Is(err, domainerrors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domainerrors.ErrForbidden),
		errors.Is(err, domainerrors.ErrInsufficientFunds):
		return http.StatusForbidden
	case errors.Is(err, domainerrors.ErrConflict),
		errors.Is(err, domainerrors.ErrAlreadyExists),
		errors.Is(err, domainerrors.ErrGameNotOpen):
		return http.StatusConflict
	case errors.Is(err, domainerrors.ErrSimulationExhausted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
