package infrastructure

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gaexport/internal/domain"
)

func TestFileSink_Put(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.csv")
	sink := NewFileSink(discardLogger())

	err := sink.Put(context.Background(), domain.Destination{Scheme: domain.SchemeFile, Path: path}, []byte("a,b\n"), "text/csv")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))
}

func TestFileSink_RejectsOtherSchemes(t *testing.T) {
	err := NewFileSink(discardLogger()).Put(context.Background(),
		domain.Destination{Scheme: domain.SchemeGCS, Bucket: "b", Path: "o"}, nil, "text/csv")
	assert.ErrorIs(t, err, domain.ErrUnsupportedDestination)
}

func TestHTTPSink_Put(t *testing.T) {
	payload := []byte("ga:date,ga:sessions\n20230101,1\n")
	secret := "s3cr3t"

	var gotBody []byte
	var gotHeaders http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotHeaders = r.Header.Clone()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sink := NewHTTPSink(secret, 5*time.Second, discardLogger(), newTestMetrics())
	err := sink.Put(context.Background(), domain.Destination{Scheme: domain.SchemeHTTP, URL: server.URL}, payload, "text/csv")
	require.NoError(t, err)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)

	assert.Equal(t, payload, gotBody)
	assert.Equal(t, "text/csv", gotHeaders.Get("Content-Type"))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), gotHeaders.Get("X-Signature"))
}

func TestHTTPSink_Unsigned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("X-Signature"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink := NewHTTPSink("", 5*time.Second, discardLogger(), newTestMetrics())
	require.NoError(t, sink.Put(context.Background(), domain.Destination{Scheme: domain.SchemeHTTP, URL: server.URL}, []byte("x"), "text/csv"))
}

func TestHTTPSink_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sink := NewHTTPSink("", 5*time.Second, discardLogger(), newTestMetrics())
	err := sink.Put(context.Background(), domain.Destination{Scheme: domain.SchemeHTTP, URL: server.URL}, []byte("x"), "text/csv")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func TestS3Sink_Put(t *testing.T) {
	var input *s3.PutObjectInput
	var body []byte
	client := new(mockS3)
	client.On("PutObject", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		input = args.Get(1).(*s3.PutObjectInput)
		body, _ = io.ReadAll(input.Body)
	}).Return(&s3.PutObjectOutput{}, nil).Once()

	sink := NewS3SinkWithClient(client, discardLogger(), newTestMetrics())
	err := sink.Put(context.Background(), domain.Destination{Scheme: domain.SchemeS3, Bucket: "exports", Path: "ga/report.csv"}, []byte("a\n"), "text/csv")

	require.NoError(t, err)
	client.AssertExpectations(t)
	assert.Equal(t, "exports", aws.ToString(input.Bucket))
	assert.Equal(t, "ga/report.csv", aws.ToString(input.Key))
	assert.Equal(t, "text/csv", aws.ToString(input.ContentType))
	assert.Equal(t, "a\n", string(body))
}

func TestS3Sink_PutError(t *testing.T) {
	client := new(mockS3)
	client.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied")).Once()

	sink := NewS3SinkWithClient(client, discardLogger(), newTestMetrics())
	err := sink.Put(context.Background(), domain.Destination{Scheme: domain.SchemeS3, Bucket: "b", Path: "k"}, []byte("a"), "text/csv")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestGCSSink_RejectsOtherSchemes(t *testing.T) {
	sink := NewGCSSink(nil, discardLogger(), newTestMetrics())
	err := sink.Put(context.Background(), domain.Destination{Scheme: domain.SchemeS3, Bucket: "b", Path: "k"}, nil, "text/csv")

	assert.ErrorIs(t, err, domain.ErrUnsupportedDestination)
	assert.NoError(t, sink.Close())
}

type stubSink struct {
	calls int
}

func (s *stubSink) Put(ctx context.Context, dest domain.Destination, data []byte, contentType string) error {
	s.calls++
	return nil
}

func TestSinkRouter(t *testing.T) {
	file, gcs := &stubSink{}, &stubSink{}
	router := NewSinkRouter().Register(domain.SchemeFile, file).Register(domain.SchemeGCS, gcs)

	require.NoError(t, router.Put(context.Background(), domain.Destination{Scheme: domain.SchemeGCS, Bucket: "b", Path: "o"}, nil, ""))
	assert.Equal(t, 0, file.calls)
	assert.Equal(t, 1, gcs.calls)

	err := router.Put(context.Background(), domain.Destination{Scheme: domain.SchemeS3}, nil, "")
	assert.ErrorIs(t, err, domain.ErrUnsupportedDestination)
}
