package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// В ошибках используем имена из json-тегов
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	validate.RegisterStructValidation(createRequestStructValidation, CreateRequestInput{})
}

// createRequestStructValidation переносу нужно новое время или учитель
func createRequestStructValidation(sl validator.StructLevel) {
	in, ok := sl.Current().Interface().(CreateRequestInput)
	if !ok {
		return
	}

	switch in.Type {
	case model.RequestTypeTrocaAula, model.RequestTypeTrocaProfessor:
		if in.RequestedStart == nil && in.RequestedTeacherID == nil {
			sl.ReportError(in.RequestedStart, "requested_start", "RequestedStart", "required_for_type", "")
		}
	case model.RequestTypeCancelamento:
		if in.RequestedStart != nil || in.RequestedTeacherID != nil {
			sl.ReportError(in.RequestedStart, "requested_start", "RequestedStart", "excluded_for_type", "")
		}
	}
}

// validateInput проверяет структуру и приводит ошибку к ErrInvalidInput
func validateInput(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", model.ErrInvalidInput, strings.Join(fields, ", "))
	}

	return fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
}
