package shopping_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/snapstyle/snapstyle-backend/pkg/domain"
	"github.com/snapstyle/snapstyle-backend/pkg/infra/shopping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(time.Duration) {}

func TestClient_MissingAPIKey(t *testing.T) {
	client := shopping.NewClient("", nil, nil)

	items, err := client.Search(context.Background(), "red sneakers", 10)

	assert.Nil(t, items)
	assert.True(t, domain.IsNotConfigured(err))
}

func TestClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "google_shopping", q.Get("engine"))
		assert.Equal(t, "red sneakers", q.Get("q"))
		assert.Equal(t, "10", q.Get("num"))
		assert.Equal(t, "test-key", q.Get("api_key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"shopping_results": [
				{"position": 1, "product_id": "p-1", "title": "Red Runner", "extracted_price": 59.99, "source": "Shoe Hub", "product_link": "https://shoehub.test/red-runner"},
				{"position": 2, "product_id": "p-2", "title": "Crimson Low", "price": "$45.00", "source": "Kicks", "link": "https://kicks.test/crimson"}
			]
		}`))
	}))
	defer server.Close()

	client := shopping.NewClient("test-key", nil, &shopping.ClientOpts{BaseURL: server.URL, Sleep: noSleep})

	items, err := client.Search(context.Background(), "red sneakers", 10)

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "p-1", items[0].ProductID)
	assert.Equal(t, 59.99, items[0].ExtractedPrice)
	assert.Equal(t, "$45.00", items[1].Price)
}

func TestClient_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error": "Your searches for the month are exhausted"}`))
	}))
	defer server.Close()

	client := shopping.NewClient("test-key", nil, &shopping.ClientOpts{BaseURL: server.URL, Sleep: noSleep})

	items, err := client.Search(context.Background(), "anything", 5)

	assert.Nil(t, items)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestClient_ThrottledThenRecovered(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"shopping_results": [{"position": 1, "product_id": "p-1", "title": "Item"}]}`))
	}))
	defer server.Close()

	client := shopping.NewClient("test-key", nil, &shopping.ClientOpts{BaseURL: server.URL, Sleep: noSleep})

	items, err := client.Search(context.Background(), "hoodie", 5)

	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_ThrottledTwiceGivesUp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := shopping.NewClient("test-key", nil, &shopping.ClientOpts{BaseURL: server.URL, Sleep: noSleep})

	items, err := client.Search(context.Background(), "hoodie", 5)

	assert.Nil(t, items)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestClient_IdenticalConcurrentQueriesCollapse(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-release
		_, _ = w.Write([]byte(`{"shopping_results": [{"position": 1, "product_id": "p-1", "title": "Item"}]}`))
	}))
	defer server.Close()

	client := shopping.NewClient("test-key", nil, &shopping.ClientOpts{BaseURL: server.URL, Sleep: noSleep})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			items, err := client.Search(context.Background(), "black hoodie", 8)
			assert.NoError(t, err)
			assert.Len(t, items, 1)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
