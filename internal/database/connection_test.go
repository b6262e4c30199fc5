package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/customeros/webmail/config"
)

func TestValidateConfig(t *testing.T) {
	valid := config.DatabaseConfig{
		Host: "localhost", Port: "5432", User: "webmail", Password: "secret", DBName: "webmail", SSLMode: "disable",
	}
	assert.NoError(t, validateConfig(&valid))
	assert.Error(t, validateConfig(nil))

	missingHost := valid
	missingHost.Host = ""
	assert.EqualError(t, validateConfig(&missingHost), "database host config is empty")

	missingSSL := valid
	missingSSL.SSLMode = ""
	assert.Error(t, validateConfig(&missingSSL))
}

func TestNewConnection_RejectsBadPort(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host: "localhost", Port: "not-a-port", User: "webmail", Password: "secret", DBName: "webmail", SSLMode: "disable",
	}
	_, err := NewConnection(&cfg)
	assert.ErrorContains(t, err, "invalid port number")
}
