package storage

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	webmail_errors "github.com/customeros/webmail/errors"
)

type mockS3Client struct {
	mock.Mock
}

func (m *mockS3Client) Upload(ctx context.Context, input s3manager.UploadInput) error {
	return m.Called(aws.StringValue(input.Bucket), aws.StringValue(input.Key), aws.StringValue(input.ContentType)).Error(0)
}

func (m *mockS3Client) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	args := m.Called(bucket, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *mockS3Client) ListFiles(ctx context.Context, bucket, prefix string) ([]string, error) {
	args := m.Called(bucket, prefix)
	files, _ := args.Get(0).([]string)
	return files, args.Error(1)
}

func (m *mockS3Client) Delete(ctx context.Context, bucket, key string) error {
	return m.Called(bucket, key).Error(0)
}

func TestObjectStorageService_UsesBucket(t *testing.T) {
	client := &mockS3Client{}
	client.On("Upload", "cache", "u1/message/1", "application/json").Return(nil)
	client.On("ListFiles", "cache", "u1/").Return([]string{"u1/message/1"}, nil)
	client.On("Delete", "cache", "u1/message/1").Return(nil)

	svc := NewStorageService(client, "cache")
	ctx := context.Background()

	require.NoError(t, svc.Upload(ctx, "u1/message/1", []byte("{}"), "application/json"))
	keys, err := svc.List(ctx, "u1/")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1/message/1"}, keys)
	require.NoError(t, svc.Delete(ctx, "u1/message/1"))
	client.AssertExpectations(t)
}

func TestObjectStorageService_DownloadNotFound(t *testing.T) {
	client := &mockS3Client{}
	notFound := awserr.NewRequestFailure(awserr.New(s3.ErrCodeNoSuchKey, "missing", nil), http.StatusNotFound, "req-1")
	client.On("Download", "cache", "gone").Return(nil, notFound)
	client.On("Download", "cache", "boom").Return(nil, errors.New("network down"))
	client.On("Download", "cache", "ok").Return([]byte("data"), nil)

	svc := NewStorageService(client, "cache")

	_, err := svc.Download(context.Background(), "gone")
	assert.ErrorIs(t, err, webmail_errors.ErrObjectNotFound)

	_, err = svc.Download(context.Background(), "boom")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, webmail_errors.ErrObjectNotFound)

	data, err := svc.Download(context.Background(), "ok")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)
}
