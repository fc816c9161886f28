package node

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTimeoutError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.DeadlineExceeded, true},
		{fmt.Errorf("call: %w", context.DeadlineExceeded), true},
		{errors.New("Client.Timeout exceeded while awaiting headers"), true},
		{errors.New("request timed out"), true},
		{errors.New("401 invalid api key"), false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, IsTimeoutError(c.err), "%v", c.err)
	}
}
