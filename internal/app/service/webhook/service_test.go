package webhook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestService_HandleWebhook(t *testing.T) {
	verifier := NewSignatureVerifier("s3cret")
	d := newTestDispatcher()
	var handled []string
	d.Listen("SubscriptionCanceled", ListenerFunc(func(_ context.Context, evt *Event) error {
		handled = append(handled, evt.ID)
		return nil
	}))
	svc := NewService(verifier, d, zap.NewNop().Sugar())

	body := []byte(`{"events":[{"id":"e1","type":"subscription.canceled","data":{}},{"id":"e2","type":"unknown.thing"}]}`)

	_, err := svc.HandleWebhook(context.Background(), body, "")
	require.ErrorIs(t, err, ErrMissingSignature)
	require.Empty(t, handled)

	_, err = svc.HandleWebhook(context.Background(), body, NewSignatureVerifier("wrong").Sign(body))
	require.ErrorIs(t, err, ErrInvalidSignature)
	require.Empty(t, handled)

	res, err := svc.HandleWebhook(context.Background(), body, verifier.Sign(body))
	require.NoError(t, err)
	require.Equal(t, "e1", res.Body())
	require.Equal(t, []string{"e1"}, handled)
}

func TestService_HandleWebhook_MalformedAfterValidSignature(t *testing.T) {
	verifier := NewSignatureVerifier("s3cret")
	svc := NewService(verifier, newTestDispatcher(), zap.NewNop().Sugar())

	body := []byte(`{"events":[{"id":"e1"}]}`)
	_, err := svc.HandleWebhook(context.Background(), body, verifier.Sign(body))
	require.ErrorIs(t, err, ErrMalformedBatch)
}
