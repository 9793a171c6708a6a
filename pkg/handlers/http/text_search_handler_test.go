package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapstyle/snapstyle-backend/pkg/domain"
	handlers "github.com/snapstyle/snapstyle-backend/pkg/handlers/http"
	"github.com/snapstyle/snapstyle-backend/pkg/infra/providers"
)

type stubDescriber struct {
	calls       int
	tier, mode  string
	description *domain.ItemDescription
	err         error
}

func (s *stubDescriber) Describe(_ context.Context, _ *providers.Config, _ providers.DescribeInput, tier, mode string) (*domain.ItemDescription, error) {
	s.calls++
	s.tier = tier
	s.mode = mode
	return s.description, s.err
}

type stubOrchestrator struct {
	gender, tier, mode string
	products           []domain.Product
}

func (s *stubOrchestrator) Search(_ context.Context, _ *domain.ItemDescription, gender, tier, mode string) []domain.Product {
	s.gender = gender
	s.tier = tier
	s.mode = mode
	return s.products
}

func (s *stubOrchestrator) SearchQuery(context.Context, string, *domain.ItemDescription, bool, int) []domain.Product {
	return nil
}

func newTextSearchApp(describer *stubDescriber, orchestrator *stubOrchestrator) *fiber.App {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	app := fiber.New()
	handler := handlers.NewTextSearchHandler(logger, describer, &providers.Config{}, orchestrator, handlers.NewHeaderTierResolver())
	app.Post("/api/search/text", handler.Handle)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}, headers map[string]string) *nethttp.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(nethttp.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestTextSearch_DescribeThenOrchestrate(t *testing.T) {
	describer := &stubDescriber{description: &domain.ItemDescription{ItemType: "sneakers"}}
	orchestrator := &stubOrchestrator{products: []domain.Product{{ID: "p1", Title: "Shoe"}}}
	app := newTextSearchApp(describer, orchestrator)

	resp := postJSON(t, app, "/api/search/text", map[string]interface{}{
		"query":       "red sneakers",
		"gender":      "male",
		"search_mode": "exact",
	}, map[string]string{"X-User-Tier": "pro"})

	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, describer.calls)
	assert.Equal(t, "pro", describer.tier)
	assert.Equal(t, "exact", describer.mode)
	assert.Equal(t, "male", orchestrator.gender)
	assert.Equal(t, "pro", orchestrator.tier)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, float64(1), body["total_results"])
}

func TestTextSearch_AnalysisEchoSkipsDescribe(t *testing.T) {
	describer := &stubDescriber{err: errors.New("should not be called")}
	orchestrator := &stubOrchestrator{}
	app := newTextSearchApp(describer, orchestrator)

	resp := postJSON(t, app, "/api/search/text", map[string]interface{}{
		"analysis": map[string]interface{}{
			"item_type": "sneakers",
			"brand":     "Acme",
			"colors":    []string{"red"},
		},
	}, nil)

	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, describer.calls)
}

func TestTextSearch_UnknownTierFallsBackToFree(t *testing.T) {
	describer := &stubDescriber{description: &domain.ItemDescription{ItemType: "sneakers"}}
	orchestrator := &stubOrchestrator{}
	app := newTextSearchApp(describer, orchestrator)

	resp := postJSON(t, app, "/api/search/text", map[string]interface{}{
		"query":       "red sneakers",
		"gender":      "martian",
		"search_mode": "weird",
	}, map[string]string{"X-User-Tier": "platinum"})

	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.TierFree, orchestrator.tier)
	assert.Equal(t, "either", orchestrator.gender)
	assert.Equal(t, "alternatives", orchestrator.mode)
}

func TestTextSearch_MissingQueryRejected(t *testing.T) {
	app := newTextSearchApp(&stubDescriber{}, &stubOrchestrator{})

	resp := postJSON(t, app, "/api/search/text", map[string]interface{}{}, nil)

	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
}

func TestTextSearch_ProviderFailureIsBadGateway(t *testing.T) {
	describer := &stubDescriber{err: domain.ErrProviderUnavailable}
	app := newTextSearchApp(describer, &stubOrchestrator{})

	resp := postJSON(t, app, "/api/search/text", map[string]interface{}{
		"query": "red sneakers",
	}, nil)

	assert.Equal(t, nethttp.StatusBadGateway, resp.StatusCode)
}
