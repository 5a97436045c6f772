package odm

import (
	"github.com/go-playground/validator/v10"
	"github.com/xompass/vsaas-odm/odm_errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validator exposes the validator instance used when ValidateWrites is set,
// so applications can register custom validations and aliases on it.
func Validator() *validator.Validate {
	return validate
}

func (c *Collection[T, I]) validateWrite(entity T) error {
	if !c.opts.ValidateWrites {
		return nil
	}
	if err := validate.Struct(entity); err != nil {
		return odm_errors.ValidationError("validation failed for "+c.name, err)
	}
	return nil
}

// Entity-level write paths honor the Before* hooks when the document type
// implements them, then run struct validation. Both happen before any
// remote call.

func (c *Collection[T, I]) beforeCreate(entity T) error {
	if hook, ok := any(entity).(BeforeCreateHook); ok {
		if err := hook.BeforeCreate(); err != nil {
			return err
		}
	}
	return c.validateWrite(entity)
}

func (c *Collection[T, I]) beforeUpdate(entity T) error {
	if hook, ok := any(entity).(BeforeUpdateHook); ok {
		if err := hook.BeforeUpdate(); err != nil {
			return err
		}
	}
	return c.validateWrite(entity)
}

func (c *Collection[T, I]) beforeDelete(entity T) error {
	if hook, ok := any(entity).(BeforeDeleteHook); ok {
		return hook.BeforeDelete()
	}
	return nil
}
