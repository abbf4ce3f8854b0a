package app

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitKafkaProducer_NoBrokers(t *testing.T) {
	t.Parallel()

	producer, err := initKafkaProducer(nil, log.WithField("test", "kafka"))
	require.NoError(t, err)
	assert.Nil(t, producer)
}

func TestInitKafkaProducer_UnreachableBrokers(t *testing.T) {
	if testing.Short() {
		t.Skip("sarama retries metadata requests before giving up")
	}

	producer, err := initKafkaProducer(ParseBrokers("127.0.0.1:1, 127.0.0.1:2"), log.WithField("test", "kafka"))
	require.Error(t, err)
	assert.Nil(t, producer)
}

func TestCloseKafkaProducer_Nil(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		closeKafkaProducer(nil, log.WithField("test", "kafka"))
	})
}
