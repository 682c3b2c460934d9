package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWorkflowLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, fakeLLM(convertedYAML, passingReview), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := f.runner.Upload(ctx, "Jenkinsfile", []byte(jenkinsfile))
	require.NoError(t, err)
	_, err = f.runner.Convert(ctx, s.ID)
	require.NoError(t, err)
	_, err = f.runner.Approve(ctx, s.ID, "leak-check")
	require.NoError(t, err)
}
