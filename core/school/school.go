// Package school describes the entities of the journal.
package school

import (
	"bytes"
	_ "embed"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/journal/core/crud"
)

// Entity names.
const (
	Role    = "role"
	Subject = "subject"
	Class   = "class"
	User    = "user"
	Lesson  = "lesson"
	Mark    = "mark"
)

//go:embed entities.yaml
var entitiesYAML []byte

// DefaultRoles is the roles dictionary loaded by the admin seed command.
var DefaultRoles = []string{"admin", "teacher", "student", "parent"}

// NewRegistry loads the journal entities and binds their write hooks.
func NewRegistry(validate *validator.Validate) (*crud.Registry, error) {
	descs, err := crud.DecodeDescriptors(bytes.NewReader(entitiesYAML))
	if err != nil {
		return nil, err
	}
	for _, d := range descs {
		if d.Name == User {
			d.BeforeWrite = passwordHook
		}
	}

	reg, err := crud.NewRegistry(validate, descs...)
	if err != nil {
		return nil, errors.Wrap(err, "loading school entities")
	}
	return reg, nil
}
