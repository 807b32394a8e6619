package memstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"storefront/internal/docstore"
	"storefront/internal/docstore/memstore"
	"storefront/internal/docstore/storetest"
	"storefront/internal/domain"
)

func TestContract(t *testing.T) {
	storetest.Run(t, func(*testing.T) *docstore.Store { return memstore.New() })
}

func TestPingAfterClose(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	assert.NoError(t, s.Ping(ctx))
	assert.NoError(t, s.Close(ctx))
	assert.True(t, errors.Is(s.Ping(ctx), domain.ErrConnectivity))
}
