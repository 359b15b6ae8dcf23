package log_test

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/dudk/tone/log"
)

func TestGetLogger(t *testing.T) {
	log.SetDebug(true)
	assert.Equal(t, logrus.DebugLevel, log.GetLogger().GetLevel())
	log.SetDebug(false)
	assert.Equal(t, logrus.InfoLevel, log.GetLogger().GetLevel())
}

func TestFields(t *testing.T) {
	l := log.GetLogger()
	var buf bytes.Buffer
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	log.Fields(l, "sine", "abc").Info("started")
	assert.Contains(t, buf.String(), "pipe=sine")
	assert.Contains(t, buf.String(), "id=abc")
	assert.Contains(t, buf.String(), "msg=started")
}
