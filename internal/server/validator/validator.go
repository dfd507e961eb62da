package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var trans ut.Translator

// Init configures gin's validator engine to report json field names and
// installs the English translator for human-readable messages.
func Init() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
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

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)
}

// ParseError flattens a binding error into field -> message pairs.
func ParseError(err error) map[string]string {
	errMap := make(map[string]string)

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		errMap["body"] = "request body is not valid JSON"
		return errMap
	}

	for _, e := range validationErrors {
		ns := e.Namespace()
		if i := strings.Index(ns, "."); i != -1 {
			ns = ns[i+1:]
		}

		msg := e.Translate(trans)
		if e.Tag() == "oneof" {
			msg = fmt.Sprintf("must be one of [%s]", strings.ReplaceAll(e.Param(), " ", ", "))
		}
		errMap[ns] = msg
	}
	return errMap
}
