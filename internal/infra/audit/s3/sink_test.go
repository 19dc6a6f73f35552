package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/require"
)

type fakeBucket struct {
	exists  bool
	made    int
	objects map[string][]byte
	failPut error
}

func (f *fakeBucket) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return f.exists, nil
}

func (f *fakeBucket) MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error {
	f.made++
	f.exists = true
	return nil
}

func (f *fakeBucket) PutObject(ctx context.Context, bucket, object string, reader *bytes.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.failPut != nil {
		return minio.UploadInfo{}, f.failPut
	}
	data, _ := io.ReadAll(reader)
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[object] = data
	return minio.UploadInfo{Bucket: bucket, Key: object, Size: size}, nil
}

func TestSinkArchivesUnderTopicKeyAndEventID(t *testing.T) {
	bucket := &fakeBucket{}
	sink, err := NewSinkWith(bucket, "settlements", []string{"payment.events.v1"}, nil)
	require.NoError(t, err)

	headers := map[string]string{"ce-id": "evt-1", "ce-type": "payment.verified.v1"}
	require.NoError(t, sink.Publish(context.Background(), "payment.events.v1", "order_1", []byte(`{"a":1}`), headers))
	require.NoError(t, sink.Publish(context.Background(), "payment.events.v1", "order_1", []byte(`{"a":1}`), headers))
	require.Equal(t, 1, bucket.made)
	require.Equal(t, []byte(`{"a":1}`), bucket.objects["payment.events.v1/order_1/evt-1.json"])
	require.Len(t, bucket.objects, 1)
}

func TestSinkSkipsOtherTopics(t *testing.T) {
	bucket := &fakeBucket{exists: true}
	sink, err := NewSinkWith(bucket, "settlements", []string{"payment.events.v1"}, nil)
	require.NoError(t, err)
	require.NoError(t, sink.Publish(context.Background(), "booking.events.v1", "bk-1", []byte(`{}`), map[string]string{"ce-id": "evt-2"}))
	require.Empty(t, bucket.objects)
}

func TestSinkReportsPutFailure(t *testing.T) {
	bucket := &fakeBucket{exists: true, failPut: errors.New("boom")}
	sink, err := NewSinkWith(bucket, "settlements", nil, nil)
	require.NoError(t, err)
	err = sink.Publish(context.Background(), "payment.events.v1", "order_1", []byte(`{}`), map[string]string{"ce-id": "evt-3"})
	require.ErrorContains(t, err, "boom")
}

func TestObjectKeySanitizes(t *testing.T) {
	require.Equal(t, "a_b/_/x.json", ObjectKey("a/b", "", "x"))
}
