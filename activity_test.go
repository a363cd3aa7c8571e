package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	auth "github.com/goliatone/go-auth-gate"
)

func TestEmitActivity_FillsDefaults(t *testing.T) {
	sink := &recordingSink{}

	auth.EmitActivity(context.Background(), sink, auth.NopLogger(), auth.ActivityEvent{
		EventType: auth.ActivityEventLoginSuccess,
		Username:  "alice",
	})

	if assert.Len(t, sink.events, 1) {
		ev := sink.events[0]
		assert.NotNil(t, ev.Metadata)
		assert.WithinDuration(t, time.Now(), ev.OccurredAt, time.Second)
	}
}

func TestEmitActivity_SinkErrorIsLogged(t *testing.T) {
	logger := new(MockLogger)
	logger.On("Warn", "activity sink record error", mock.Anything).Once()

	failing := auth.ActivitySinkFunc(func(context.Context, auth.ActivityEvent) error {
		return errors.New("sink down")
	})

	assert.NotPanics(t, func() {
		auth.EmitActivity(context.Background(), failing, logger, auth.ActivityEvent{
			EventType: auth.ActivityEventLoginFailure,
		})
	})

	logger.AssertExpectations(t)
}

func TestEmitActivity_NilSink(t *testing.T) {
	assert.NotPanics(t, func() {
		auth.EmitActivity(context.Background(), nil, nil, auth.ActivityEvent{})
		auth.EmitActivity(context.Background(), auth.ActivitySinkFunc(nil), auth.NopLogger(), auth.ActivityEvent{})
	})
}

func TestActivitySinks_FanOut(t *testing.T) {
	first := &recordingSink{}
	second := &recordingSink{}
	boom := errors.New("boom")

	multi := auth.ActivitySinks(
		first,
		nil,
		auth.ActivitySinkFunc(func(context.Context, auth.ActivityEvent) error { return boom }),
		second,
	)

	err := multi.Record(context.Background(), auth.ActivityEvent{EventType: auth.ActivityEventTokenAccepted})

	assert.ErrorIs(t, err, boom)
	assert.Len(t, first.events, 1)
	assert.Len(t, second.events, 1)
}
