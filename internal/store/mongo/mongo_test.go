package mongo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"pumpwatch/internal/model"
)

func TestConnect_MissingURI(t *testing.T) {
	_, err := Connect(context.Background(), Config{})
	var cfgErr *model.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr), "got %v", err)
}

func TestClassify(t *testing.T) {
	err := classify("find pairs", context.DeadlineExceeded)
	var su *model.StoreUnavailableError
	assert.True(t, errors.As(err, &su))

	plain := errors.New("duplicate key")
	assert.Equal(t, plain, classify("upsert pairs", plain))
}
