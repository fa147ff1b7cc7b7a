package stock_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"stockrelay/internal/stock"
)

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestFetchMapsProviderKeys(t *testing.T) {
	t.Parallel()

	// Arrange: a provider payload using provider-side names.
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(jsonResponse(http.StatusOK, `{"Data":{
			"honey":[{"name":"Honey Comb","stock":"2"}],
			"seeds":[{"name":"Carrot","stock":14}],
			"cosmetics":[],
			"gear":[{"name":"Shovel","stock":3}],
			"egg":[{"name":"Common Egg","stock":1}]
		}}`), nil).
		Times(1)

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := stock.NewFetcher(stock.WithHTTPClient(httpClient), stock.WithClock(func() time.Time { return at }))

	// Act
	snap, err := f.Fetch(t.Context())

	// Assert
	require.NoError(t, err)
	require.Equal(t, at, snap.FetchedAt())
	require.Equal(t, []stock.Item{{Name: "Common Egg", Stock: "1"}}, snap.Items(stock.CategoryEgg))
	require.Equal(t, []stock.Item{{Name: "Carrot", Stock: "14"}}, snap.Items(stock.CategoryStock))
	require.Equal(t, []stock.Item{{Name: "Shovel", Stock: "3"}}, snap.Items(stock.CategoryGear))
	require.Empty(t, snap.Items(stock.CategoryCosmetic))
	require.Equal(t, []stock.Item{{Name: "Honey Comb", Stock: "2"}}, snap.Items(stock.CategoryEvent))
	require.Equal(t, 4, snap.Len())
}

func TestFetchMissingKeysAreEmpty(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(jsonResponse(http.StatusOK, `{"Data":{"gear":[{"name":"Trowel","stock":5}]}}`), nil)

	snap, err := stock.NewFetcher(stock.WithHTTPClient(httpClient)).Fetch(t.Context())
	require.NoError(t, err)
	for _, c := range stock.Categories() {
		if c == stock.CategoryGear {
			continue
		}
		require.Emptyf(t, snap.Items(c), "category %s", c)
	}
	require.Len(t, snap.Items(stock.CategoryGear), 1)
}

func TestFetchErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		res    *http.Response
		err    error
		status int
	}{
		{name: "transport", err: errors.New("connection refused")},
		{name: "status", res: jsonResponse(http.StatusBadGateway, "upstream down"), status: http.StatusBadGateway},
		{name: "not json", res: jsonResponse(http.StatusOK, "<html>")},
		{name: "bad category", res: jsonResponse(http.StatusOK, `{"Data":{"egg":"oops"}}`)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			httpClient := NewMockHTTPClient(ctrl)
			httpClient.EXPECT().Do(gomock.Any()).Return(tt.res, tt.err).Times(1)

			_, err := stock.NewFetcher(stock.WithHTTPClient(httpClient)).Fetch(t.Context())
			require.Error(t, err)

			var fe *stock.FetchError
			require.ErrorAs(t, err, &fe)
			require.Equal(t, tt.status, fe.Status)
		})
	}
}

func TestFetchSendsHeaders(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodGet, req.Method)
			require.Equal(t, "http://localhost:9999/stock", req.URL.String())
			require.Equal(t, "stockrelay-test", req.Header.Get("User-Agent"))
			require.Equal(t, "bar", req.Header.Get("foo"))
			return jsonResponse(http.StatusOK, `{"Data":{}}`), nil
		})

	f := stock.NewFetcher(
		stock.WithHTTPClient(httpClient),
		stock.WithURL("http://localhost:9999/stock"),
		stock.WithUserAgent("stockrelay-test"),
		stock.WithHeader(http.Header{"foo": []string{"bar"}}),
	)
	_, err := f.Fetch(t.Context())
	require.NoError(t, err)
}

func TestFetchCategory(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"Data":{"seeds":[{"name":"Tomato","stock":"x3"}]}}`)
	}))
	t.Cleanup(srv.Close)

	f := stock.NewFetcher(stock.WithURL(srv.URL), stock.WithHTTPClient(srv.Client()))

	items, err := f.FetchCategory(t.Context(), stock.CategoryStock)
	require.NoError(t, err)
	require.Equal(t, []stock.Item{{Name: "Tomato", Stock: "x3"}}, items)

	_, err = f.FetchCategory(t.Context(), stock.Category("pets"))
	var ve *stock.ValidationError
	require.ErrorAs(t, err, &ve)
}
