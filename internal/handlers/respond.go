package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"go-billing-pos/internal/billing"
	"go-billing-pos/internal/logger"
)

// respondError maps billing errors onto status codes. Anything unexpected is logged and hidden.
func respondError(c *gin.Context, err error) {
	code := billing.Code(err)
	switch {
	case errors.Is(err, billing.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": code})
	case errors.Is(err, billing.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": code})
	case errors.Is(err, billing.ErrInvalidInput),
		errors.Is(err, billing.ErrInsufficientStock),
		errors.Is(err, billing.ErrInvalidReturn),
		errors.Is(err, billing.ErrInvalidIdentifier):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": code})
	default:
		_ = c.Error(err)
		logger.FromGin(c).Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// bindError reports the first failed field of a request body or query.
func bindError(c *gin.Context, err error) {
	msg := "Invalid request body"

	var serr binding.SliceValidationError
	if errors.As(err, &serr) && len(serr) > 0 {
		err = serr[0]
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			msg = fmt.Sprintf("%s is required", fe.Field())
		case "isodate":
			msg = fmt.Sprintf("%s must be a YYYY-MM-DD date", fe.Field())
		case "oneof":
			msg = fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
		case "min":
			msg = fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
		default:
			msg = fmt.Sprintf("%s is invalid", fe.Field())
		}
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": billing.ErrInvalidInput.Code})
}
