package domain_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/autostack/autostack/pkg/domain"
)

func TestNewProjectName(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"demo01", false},
		{"  shop-api  ", false},
		{"my_app.v2", false},
		{"", true},
		{"../escape", true},
		{"has space", true},
		{"-leading", true},
		{strings.Repeat("a", 65), true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			name, err := domain.NewProjectName(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrInvalidProjectName) {
				t.Errorf("expected ErrInvalidProjectName, got %v", err)
			}
			if err == nil && name.String() != strings.TrimSpace(tt.in) {
				t.Errorf("String() = %q", name.String())
			}
		})
	}
}

func TestProjectName_ContainerName(t *testing.T) {
	if got := domain.MustProjectName("Demo01").ContainerName(); got != "autostack-demo01" {
		t.Errorf("ContainerName = %q", got)
	}
	if !(domain.ProjectName{}).IsZero() {
		t.Error("zero value should report IsZero")
	}
}
