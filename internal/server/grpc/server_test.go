package grpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewServerRegistersHealthAndReflection(t *testing.T) {
	server := NewServer(zap.NewNop())

	info := server.GetServiceInfo()
	assert.Contains(t, info, "grpc.health.v1.Health")
	assert.Contains(t, info, "grpc.reflection.v1.ServerReflection")
}
