package analysis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStageOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Stage
	}{
		{"load", LoadFailed(errors.New("missing")), StageLoad},
		{"execute", ExecutionFailed(errors.New("boom")), StageExecute},
		{"extract", ExtractFailed(errors.New("bad json")), StageExtract},
		{"timeout", Timeout(time.Second), StageTimeout},
		{"wrapped load", fmt.Errorf("run: %w", LoadFailed(errors.New("x"))), StageLoad},
		{"bare deadline", context.DeadlineExceeded, StageTimeout},
		{"plain error", errors.New("other"), StageExecute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StageOf(tt.err))
		})
	}
}

func TestErrorMessageIsVerbatim(t *testing.T) {
	err := ExecutionFailed(errors.New("ValueError: could not convert string to float"))
	assert.Equal(t, "ValueError: could not convert string to float", err.Error())
}

func TestTimeoutMatchesDeadline(t *testing.T) {
	err := Timeout(600 * time.Second)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, "execution timed out after 10m0s", err.Error())
}
