// Package httpx holds the JSON envelope shared by every handler.
package httpx

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"AMS-backend/internal/platform/apperr"
	"AMS-backend/internal/platform/logger"
)

func init() {
	// バリデーションエラーの項目名は JSON タグ名で返す
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

type ErrorBody struct {
	Code    apperr.Kind `json:"code"`
	Message string      `json:"message"`
}

// Envelope: {success, data | error, fieldErrors?}
type Envelope struct {
	Success     bool              `json:"success"`
	Data        any               `json:"data,omitempty"`
	Error       *ErrorBody        `json:"error,omitempty"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

func OK(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

// Fail writes err. Validation/NotFound/Conflict carry their message;
// everything else is logged and reported as an opaque failure.
func Fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	body := Envelope{Success: false}

	var ae *apperr.Error
	if errors.As(err, &ae) && status < http.StatusInternalServerError {
		body.Error = &ErrorBody{Code: ae.Kind, Message: ae.Message}
		body.FieldErrors = ae.Fields
	} else {
		logger.L().Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
		kind := apperr.KindOf(err)
		msg := "internal server error"
		if kind == apperr.KindTransaction {
			msg = "the operation could not be completed and was rolled back"
		}
		body.Error = &ErrorBody{Code: kind, Message: msg}
	}
	c.AbortWithStatusJSON(status, body)
}

// BindJSON binds the request body; binding failures become field-level validation errors.
func BindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		Fail(c, BindError(err))
		return false
	}
	return true
}

func BindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		f := apperr.FieldErrors{}
		for _, fe := range verrs {
			f.Add(fe.Field(), describe(fe))
		}
		return f.Err()
	}
	return apperr.Validation("invalid json")
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	default:
		return "is invalid"
	}
}

// ParamID parses a positive integer path parameter.
func ParamID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		Fail(c, apperr.FieldErrors{name: "must be a positive integer"}.Err())
		return 0, false
	}
	return id, true
}

func ParseIntDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

// ParseBoolish accepts 1/true/yes/all.
func ParseBoolish(s string) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	return s == "1" || s == "true" || s == "yes" || s == "all"
}
