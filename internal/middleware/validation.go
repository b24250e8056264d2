package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/safar/go-marketplace/internal/models"
)

var setupOnce sync.Once

// SetupValidator configures gin's validator: JSON field names in errors and
// the "substatus" tag for sub-order statuses.
func SetupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			return name
		})
		_ = v.RegisterValidation("substatus", func(fl validator.FieldLevel) bool {
			return models.SubOrderStatus(fl.Field().String()).IsValid()
		})
	})
}

// HandleBindError reports a request that failed binding or validation.
func HandleBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "malformed request body", "code": "VALIDATION_ERROR"})
		return
	}

	e := verrs[0]
	code := "VALIDATION_ERROR"
	if e.Tag() == "substatus" {
		code = "INVALID_STATUS"
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error": e.Field() + ": " + validationMessage(e),
		"code":  code,
	})
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "invalid email format"
	case "oneof":
		return "must be one of: " + e.Param()
	case "substatus":
		return "must be one of: placed processing shipping delivered cancelled"
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	default:
		return "invalid value"
	}
}
