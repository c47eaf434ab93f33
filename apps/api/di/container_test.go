package di

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesisapp/thesis/apps/api/echo"
	"github.com/thesisapp/thesis/core"
	"github.com/thesisapp/thesis/core/proposal"
	"github.com/thesisapp/thesis/services/scheduler"
)

func TestNew_memory(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Database.Engine = EngineMemory
	conf.LogLevel = "error"

	c := New(conf)
	err := c.Invoke(func(server echoapi.Server, sch *scheduler.Scheduler, props proposal.Repository, closeFn CloseFunc) {
		require.NotNil(t, sch)
		assert.NoError(t, closeFn())

		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/proposals", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
	require.NoError(t, err)
}

func TestNewEmailService(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Debug = false
	conf.SendgridApiKey = ""
	assert.NotNil(t, newEmailService(conf))

	conf.SendgridApiKey = "SG.key"
	assert.NotNil(t, newEmailService(conf))
}
