package app

import (
	"errors"
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"

	"github.com/danielpatrickdp/sus-query/go-controller/internal/config"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"runtime", errors.New("disk full"), ExitRuntime},
		{"usage", &UsageError{Err: errors.New("bad flag")}, ExitUsage},
		{"wrapped usage", fmt.Errorf("ask: %w", &UsageError{Err: errors.New("x")}), ExitUsage},
		{"invalid config", &config.FieldError{Field: "database.path", Message: "empty"}, ExitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestUsageArgs(t *testing.T) {
	v := UsageArgs(cobra.ExactArgs(1))
	assert.NoError(t, v(&cobra.Command{}, []string{"a"}))

	err := v(&cobra.Command{}, nil)
	var usage *UsageError
	assert.ErrorAs(t, err, &usage)
}
