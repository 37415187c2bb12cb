package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/id"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	id_translations "github.com/go-playground/validator/v10/translations/id"
	"github.com/stemsi/perizinan-backend/internal/model"
)

// trans translates validation errors into Indonesian, the language of the
// dashboards.
var trans ut.Translator

// Setup registers the JSON field names, the custom tags and the Indonesian
// translations on Gin's binding engine. Call once during application startup.
func Setup() {
	v, ok := binding.Validator.Engine().(*govalidator.Validate)
	if !ok {
		return
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// staffrole accepts the current role names and the legacy ones.
	_ = v.RegisterValidation("staffrole", func(fl govalidator.FieldLevel) bool {
		_, ok := model.ParseRole(fl.Field().String())
		return ok
	})

	idLocale := id.New()
	uni := ut.New(idLocale, idLocale)
	trans, _ = uni.GetTranslator("id")
	_ = id_translations.RegisterDefaultTranslations(v, trans)

	_ = v.RegisterTranslation("staffrole", trans,
		func(ut ut.Translator) error {
			return ut.Add("staffrole", "{0} harus salah satu dari: admin, approver, submitter", true)
		},
		func(ut ut.Translator, fe govalidator.FieldError) string {
			msg, _ := ut.T("staffrole", fe.Field())
			return msg
		},
	)
}

// TranslateErrors takes a binding/validation error and returns a map of
// field name to message. A non-validation error (e.g. malformed JSON) is
// returned under "detail".
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fe.Field()] = fe.Translate(trans)
		}
		return fields
	}

	fields["detail"] = err.Error()
	return fields
}

// Bind binds and validates the request body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}
