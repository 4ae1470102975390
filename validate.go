package beans

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// definitionSpec is the validated view of a definition.
type definitionSpec struct {
	Type       reflect.Type     `validate:"required"`
	Scope      Scope            `validate:"oneof=0 1"`
	Conditions []Condition      `validate:"dive"`
	Injections []InjectionPoint `validate:"dive"`
}

var validate = sync.OnceValue(func() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(validateCondition, Condition{})
	return v
})

func validateCondition(sl validator.StructLevel) {
	c := sl.Current().Interface().(Condition)
	switch c.Kind {
	case PropertyPresent, PropertyAbsent, PropertyEquals, PropertyNotEquals:
		if strings.TrimSpace(c.Path) == "" {
			sl.ReportError(c.Path, "Path", "Path", "required", "")
		}
	case BeanPresent, BeanAbsent:
		if c.Type == nil {
			sl.ReportError(c.Type, "Type", "Type", "required", "")
		}
	default:
		sl.ReportError(c.Kind, "Kind", "Kind", "oneof", "")
	}
}

func validateMetadata(m *metadata) error {
	return validateSpec(m.Name(), definitionSpec{
		Type:       m.typ,
		Scope:      m.scope,
		Conditions: m.conditions,
	})
}

func validateDefinition(d *Definition) error {
	return validateSpec(d.Name(), definitionSpec{
		Type:       d.typ,
		Scope:      d.scope,
		Conditions: d.conditions,
		Injections: d.injections,
	})
}

func validateSpec(bean string, spec definitionSpec) error {
	err := validate().Struct(spec)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &InvalidDefinitionError{Bean: bean, Err: err}
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
	}
	return &InvalidDefinitionError{Bean: bean, Err: errors.New(strings.Join(msgs, "; "))}
}
