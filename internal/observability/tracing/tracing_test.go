package tracing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsActor(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/v1/orders/:id"),
		attribute.String("actor_id", "waiter-1"),
	)
	assert.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

func TestSafeErrorFlattensChain(t *testing.T) {
	base := errors.New("order_closed")
	err := SafeError(fmt.Errorf("void item: %w", base))
	assert.EqualError(t, err, "void item: order_closed")
	assert.False(t, errors.Is(err, base))
	assert.Nil(t, SafeError(nil))
}
