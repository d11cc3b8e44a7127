package handlers

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"go-billing-pos/internal/billing"
)

var registerOnce sync.Once

// RegisterValidators adds the isodate tag and reports fields by their JSON or form name.
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("gin validator engine is not go-playground/validator")
			return
		}
		v.RegisterTagNameFunc(fieldName)
		err = v.RegisterValidation("isodate", isoDate)
	})
	return err
}

func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

func isoDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(billing.DateLayout, fl.Field().String())
	return err == nil
}
