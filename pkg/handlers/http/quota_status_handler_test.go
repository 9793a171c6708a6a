package http_test

import (
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	handlers "github.com/snapstyle/snapstyle-backend/pkg/handlers/http"
	"github.com/snapstyle/snapstyle-backend/pkg/quota"
)

func TestQuotaStatusHandler(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	tracker := quota.NewTracker(10, logger, nil)
	tracker.RecordCall()
	tracker.RecordCall()

	app := fiber.New()
	app.Get("/api/quota", handlers.NewQuotaStatusHandler(logger, tracker).Handle)

	resp, err := app.Test(httptest.NewRequest(nethttp.MethodGet, "/api/quota", nil))
	require.NoError(t, err)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	var snapshot quota.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snapshot))
	assert.Equal(t, 2, snapshot.CallsUsedToday)
	assert.Equal(t, 10, snapshot.DailyLimit)
	assert.Equal(t, 8, snapshot.Remaining)
}
