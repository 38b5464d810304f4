package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/schooldesk/schooldesk/jobs"
)

func TestTriggerRejectsUnknownJob(t *testing.T) {
	var c JobsCLI
	_, err := c.Trigger(context.Background(), "report:build")
	require.ErrorContains(t, err, "unsupported job report:build")
}

func TestTriggerWithoutClient(t *testing.T) {
	var c *JobsCLI
	_, err := c.Trigger(context.Background(), "session:sweep")
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestTriggerEnqueuesSessionSweep(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewJobsCLI(asynq.RedisClientOpt{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	at := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return at }

	info, err := c.Trigger(context.Background(), jobs.TaskSessionSweep)
	require.NoError(t, err)
	require.Equal(t, jobs.TaskSessionSweep, info.Type)
	require.Equal(t, jobs.QueueDefault, info.Queue)
	require.Equal(t, 3, info.MaxRetry)

	var payload jobs.SessionSweepPayload
	require.NoError(t, json.Unmarshal(info.Payload, &payload))
	require.True(t, at.Equal(payload.RequestedAt))
}

func TestInspectWithoutInspector(t *testing.T) {
	var c *JobsCLI
	_, err := c.InspectQueue(context.Background())
	require.ErrorIs(t, err, ErrNotConfigured)
	_, err = c.ListScheduled(context.Background(), 0)
	require.ErrorIs(t, err, ErrNotConfigured)
	require.NoError(t, c.Close())
}

func TestRunCommand(t *testing.T) {
	cases := []struct {
		name   string
		args   []string
		code   int
		stderr string
	}{
		{name: "no args", args: nil, code: 2, stderr: "usage"},
		{name: "unknown", args: []string{"purge"}, code: 2, stderr: "usage"},
		{name: "trigger without name", args: []string{"trigger"}, code: 2, stderr: "usage"},
		{name: "trigger unconfigured", args: []string{"trigger", "session:sweep"}, code: 1, stderr: "not configured"},
		{name: "stats unconfigured", args: []string{"stats"}, code: 1, stderr: "not configured"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
			code := Run(context.Background(), nil, tc.args, stdout, stderr)
			require.Equal(t, tc.code, code)
			require.Contains(t, stderr.String(), tc.stderr)
			require.Empty(t, stdout.String())
		})
	}
}
