package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrInvalidProjectName = errors.New("invalid project name")

// projectNamePattern keeps names usable as directory and container names.
var projectNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// ProjectName is a validated project identifier.
type ProjectName struct {
	value string
}

// NewProjectName validates value.
func NewProjectName(value string) (ProjectName, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return ProjectName{}, fmt.Errorf("%w: name cannot be empty", ErrInvalidProjectName)
	}
	if len(value) > 64 {
		return ProjectName{}, fmt.Errorf("%w: longer than 64 characters: %s", ErrInvalidProjectName, value)
	}
	if !projectNamePattern.MatchString(value) {
		return ProjectName{}, fmt.Errorf("%w: %s", ErrInvalidProjectName, value)
	}
	return ProjectName{value: value}, nil
}

// MustProjectName creates a ProjectName or panics if invalid. Use only in tests.
func MustProjectName(value string) ProjectName {
	name, err := NewProjectName(value)
	if err != nil {
		panic(err)
	}
	return name
}

func (n ProjectName) String() string {
	return n.value
}

func (n ProjectName) IsZero() bool {
	return n.value == ""
}

// ContainerName is the docker container name used for the project.
func (n ProjectName) ContainerName() string {
	return "autostack-" + strings.ToLower(n.value)
}
