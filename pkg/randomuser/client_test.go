package randomuser

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "useretl/pkg/errors"
	"useretl/pkg/logger"
	"useretl/pkg/retry"
)

const sampleBody = `{
  "results": [{
    "gender": "female",
    "name": {"title": "Ms", "first": "Ada", "last": "Lovelace"},
    "location": {
      "street": {"number": 12, "name": "St Marks"},
      "city": "London", "state": "Greater London", "country": "United Kingdom",
      "postcode": "W1 2AB",
      "timezone": {"offset": "+1:00", "description": "Brussels, Copenhagen"}
    },
    "email": "ada@example.com",
    "login": {"uuid": "1b2c", "username": "abc", "password": "xyz123"},
    "dob": {"date": "1990-06-15T10:30:00.000Z", "age": 34},
    "phone": "020-1234", "cell": "07-5678", "nat": "GB"
  }],
  "info": {"seed": "s", "results": 1, "page": 1, "version": "1.4"}
}`

// mockRoundTripper allows us to intercept HTTP requests
type mockRoundTripper struct {
	handler func(req *http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.handler(req)
}

func newResponse(req *http.Request, statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
		Request:    req,
	}
}

func newTestClient(t *testing.T, url string, maxAttempts int) *Client {
	t.Helper()
	client, err := NewClient(Options{
		URL:         url,
		Timeout:     5 * time.Second,
		MaxAttempts: maxAttempts,
		Backoff:     &retry.ConstantBackoff{Delay: time.Millisecond},
		Logger:      logger.NewTestLogger(),
	})
	require.NoError(t, err)
	return client
}

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient(Options{Logger: logger.NewNopLogger()})
	require.NoError(t, err)

	assert.Equal(t, DefaultURL, client.url)
	assert.Equal(t, 5, client.retrier.MaxAttempts())
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient(Options{URL: "ftp://randomuser.me/api/"})
	assert.Error(t, err)
}

func TestFetchUserSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleBody))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL+"/api/", 5)
	user, err := client.FetchUser(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Ada", user.Name.First)
	assert.Equal(t, "abc", user.Login.Username)
	assert.Equal(t, "+1:00", user.Location.Timezone.Offset)
	assert.Equal(t, "1990-06-15T10:30:00.000Z", user.DOB.Date)
	assert.Equal(t, Postcode("W1 2AB"), user.Location.Postcode)
}

func TestFetchUserRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(sampleBody))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 5)
	user, err := client.FetchUser(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, user)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchUserGivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 5)
	user, err := client.FetchUser(context.Background())

	assert.Nil(t, user)
	require.Error(t, err)
	assert.True(t, errs.IsFetch(err))
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
}

func TestFetchUserTransportOnlyDoesNotRetryStatus(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(Options{
		URL:           server.URL,
		MaxAttempts:   5,
		Backoff:       &retry.ConstantBackoff{Delay: time.Millisecond},
		Logger:        logger.NewTestLogger(),
		TransportOnly: true,
	})
	require.NoError(t, err)

	_, err = client.FetchUser(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsFetch(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchUserDoesNotRetryMalformedOrEmpty(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantType errs.ErrorType
	}{
		{"malformed json", `{"results": [`, errs.ErrorTypeMalformed},
		{"empty results", `{"results": []}`, errs.ErrorTypeEmpty},
		{"api error", `{"error": "Uh oh, something has gone wrong."}`, errs.ErrorTypeEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(t, server.URL, 5)
			user, err := client.FetchUser(context.Background())

			assert.Nil(t, user)
			var fetchErr *errs.Error
			require.True(t, errors.As(err, &fetchErr))
			assert.Equal(t, errs.KindFetch, fetchErr.Kind)
			assert.Equal(t, tt.wantType, fetchErr.Type)
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
		})
	}
}

func TestFetchUserDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 5)
	_, err := client.FetchUser(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchUserRetriesNetworkErrors(t *testing.T) {
	var calls int32
	client := newTestClient(t, DefaultURL, 3)
	client.httpClient = &http.Client{Transport: &mockRoundTripper{handler: func(req *http.Request) (*http.Response, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, errors.New("connection reset by peer")
		}
		return newResponse(req, http.StatusOK, sampleBody), nil
	}}}

	user, err := client.FetchUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Lovelace", user.Name.Last)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchUserHonoursCancellation(t *testing.T) {
	client, err := NewClient(Options{
		MaxAttempts: 5,
		Backoff:     &retry.ConstantBackoff{Delay: time.Minute},
		Logger:      logger.NewNopLogger(),
	})
	require.NoError(t, err)
	client.httpClient = &http.Client{Transport: &mockRoundTripper{handler: func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	}}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = client.FetchUser(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestFetchUserRetriesClientTimeout(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			time.Sleep(300 * time.Millisecond)
		}
		_, _ = w.Write([]byte(sampleBody))
	}))
	defer server.Close()

	client, err := NewClient(Options{
		URL:         server.URL,
		Timeout:     100 * time.Millisecond,
		MaxAttempts: 5,
		Backoff:     &retry.ConstantBackoff{Delay: 0},
		Logger:      logger.NewTestLogger(),
	})
	require.NoError(t, err)

	user, err := client.FetchUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name.First)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

type countingLimiter struct{ waits int }

func (l *countingLimiter) Allow() bool                    { return true }
func (l *countingLimiter) Wait(ctx context.Context) error { l.waits++; return nil }
func (l *countingLimiter) Reset()                         {}

func TestFetchUserWaitsOnLimiterEveryAttempt(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(sampleBody))
	}))
	defer server.Close()

	limiter := &countingLimiter{}
	client := newTestClient(t, server.URL, 5)
	client.limiter = limiter

	_, err := client.FetchUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, limiter.waits)
}
