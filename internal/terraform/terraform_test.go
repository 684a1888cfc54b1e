package terraform

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"provizor/internal/runner"
	"provizor/internal/runner/runnertest"
)

func newUnderTest(fake *runnertest.Fake) *Terraform {
	tf := New(fake, zap.NewNop())
	tf.RetryDelay = time.Millisecond
	return tf
}

func TestInitRunsInitAndValidate(t *testing.T) {
	fake := runnertest.New()
	tf := newUnderTest(fake)

	require.NoError(t, tf.Init(context.Background(), "/work/tf"))
	assert.Equal(t, []string{
		"terraform init -upgrade",
		"terraform validate",
	}, fake.CommandLines())
	for _, call := range fake.Calls() {
		assert.Equal(t, "/work/tf", call.Spec.Dir)
	}
}

func TestApplyHappyPath(t *testing.T) {
	fake := runnertest.New()
	fake.Script("terraform output", runnertest.Response{
		Stdout: []byte(`{"vm_ip":{"sensitive":false,"value":"10.0.10.5"}}`),
	})
	tf := newUnderTest(fake)

	outputs, err := tf.Apply(context.Background(), "/work/tf", 2)
	require.NoError(t, err)

	ip, ok := outputs.VMIP()
	assert.True(t, ok)
	assert.Equal(t, "10.0.10.5", ip)

	assert.Equal(t, []string{
		"terraform plan -input=false -out=tfplan",
		"terraform apply -auto-approve -input=false tfplan",
		"terraform output -json",
	}, fake.CommandLines())
}

func TestApplyRetriesWithDestroyCleanup(t *testing.T) {
	fake := runnertest.New()
	fake.Script("terraform apply", runnertest.Response{
		Err:   &runner.ExitError{Cmd: "terraform apply", Code: 1},
		Times: 1,
	})
	fake.Script("terraform output", runnertest.Response{Stdout: []byte(`{}`)})
	tf := newUnderTest(fake)

	_, err := tf.Apply(context.Background(), "/work/tf", 2)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"terraform plan -input=false -out=tfplan",
		"terraform apply -auto-approve -input=false tfplan",
		"terraform destroy -auto-approve -input=false",
		"terraform plan -input=false -out=tfplan",
		"terraform apply -auto-approve -input=false tfplan",
		"terraform output -json",
	}, fake.CommandLines())
}

func TestApplyGivesUpAfterAttempts(t *testing.T) {
	fake := runnertest.New()
	fake.Script("terraform apply", runnertest.Response{
		Err: &runner.ExitError{Cmd: "terraform apply", Code: 1},
	})
	tf := newUnderTest(fake)

	_, err := tf.Apply(context.Background(), "/work/tf", 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestApplyCleanupFailureDoesNotAbortRetry(t *testing.T) {
	fake := runnertest.New()
	fake.Script("terraform apply", runnertest.Response{
		Err:   &runner.ExitError{Cmd: "terraform apply", Code: 1},
		Times: 1,
	})
	fake.Script("terraform destroy", runnertest.Response{
		Err:   errors.New("lock held"),
		Times: 1,
	})
	fake.Script("terraform output", runnertest.Response{Stdout: []byte(`{}`)})
	tf := newUnderTest(fake)

	_, err := tf.Apply(context.Background(), "/work/tf", 3)
	assert.NoError(t, err)
}

func TestDebugSetsTFLogEnv(t *testing.T) {
	fake := runnertest.New()
	tf := newUnderTest(fake)
	tf.Debug = true

	require.NoError(t, tf.Plan(context.Background(), "/work/tf"))
	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "DEBUG", calls[0].Spec.Env["TF_LOG"])
	assert.Contains(t, calls[0].Spec.Env["TF_LOG_PATH"], "terraform-debug.log")
}

func TestOutputFailure(t *testing.T) {
	fake := runnertest.New()
	fake.Script("terraform output", runnertest.Response{
		Err: &runner.ExitError{Cmd: "terraform output -json", Code: 1},
	})
	tf := newUnderTest(fake)

	out, err := tf.Output(context.Background(), "/work/tf")
	require.Error(t, err)
	assert.Empty(t, out)
}
