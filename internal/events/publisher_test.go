package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"postback-platform/internal/config"
	"postback-platform/internal/model"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestKafkaPublisher_WritesKeyedJSON(t *testing.T) {
	w := &recordingWriter{}
	p := NewKafkaPublisher(w)

	ev := NewConversionEvent(model.Conversion{ConversionID: "cv_1", ClickID: "CLK-001", UserID: "alice", OfferID: "ML-100", Total: 12, Status: model.ConversionApproved})
	require.NoError(t, p.PublishConversion(context.Background(), ev))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "alice", string(w.msgs[0].Key))

	var decoded ConversionEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, 12, decoded.Total)
	assert.Equal(t, "CLK-001", decoded.ClickID)
}

func TestKafkaPublisher_WrapsWriteErrors(t *testing.T) {
	boom := errors.New("broker down")
	p := NewKafkaPublisher(&recordingWriter{err: boom})

	err := p.PublishConversion(context.Background(), ConversionEvent{UserID: "u"})

	assert.ErrorIs(t, err, boom)
}

func TestNew_WithoutBrokersIsNop(t *testing.T) {
	p := New(config.Kafka{Topic: "x"})

	assert.IsType(t, NopPublisher{}, p)
	assert.NoError(t, p.PublishConversion(context.Background(), ConversionEvent{}))
	assert.NoError(t, p.Close())
}
