package mq

import (
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"

	"github.com/zidesign/catalog/config"
)

func TestHeadersToAttributes(t *testing.T) {
	assert.Nil(t, headersToAttributes(nil))
	assert.Equal(t, map[string]string{
		"event_type": "work.approved",
		"raw":        "bytes",
		"attempt":    "2",
	}, headersToAttributes(amqp.Table{
		"event_type": "work.approved",
		"raw":        []byte("bytes"),
		"attempt":    int32(2),
	}))
}

func TestRabbitMQRequiresURL(t *testing.T) {
	_, err := NewRabbitMQClient(config.RabbitMQConfig{URL: "  "})
	assert.Error(t, err)
}
