package s3store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unentropy/unentropy-sub001/internal/entity/metric"
	"github.com/unentropy/unentropy-sub001/internal/storage"
)

// fakeClient хранит объекты в памяти.
type fakeClient struct {
	objects map[string][]byte
	getErr  error
	lastPut *s3.PutObjectInput
}

func (f *fakeClient) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeClient) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = data
	f.lastPut = in
	return &s3.PutObjectOutput{}, nil
}

func TestStore_FetchStore(t *testing.T) {
	client := &fakeClient{objects: map[string][]byte{}}
	st := NewWithClient(client, "metrics", "/ci/", nil)
	ctx := context.Background()

	_, err := st.Fetch(ctx, "ns/branch/main")
	require.ErrorIs(t, err, storage.ErrSnapshotNotFound)

	snap, err := metric.NewSnapshot("abc", time.Now(), []metric.Metric{{Name: "tests", Value: 42, Unit: metric.UnitCount}})
	require.NoError(t, err)
	require.NoError(t, st.Store(ctx, "ns/branch/main", snap))

	assert.Equal(t, "ci/ns/branch/main.json", *client.lastPut.Key)
	assert.Equal(t, "application/json", *client.lastPut.ContentType)

	got, err := st.Fetch(ctx, "ns/branch/main")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.Revision)
	assert.Equal(t, 42.0, got.Metrics["tests"].Value)
}

func TestStore_FetchErrorIsNotNotFound(t *testing.T) {
	client := &fakeClient{objects: map[string][]byte{}, getErr: errors.New("access denied")}
	st := NewWithClient(client, "metrics", "", nil)

	_, err := st.Fetch(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrSnapshotNotFound)
	assert.Contains(t, err.Error(), "s3://metrics/k.json")
}

func TestConfigFromOptions(t *testing.T) {
	tests := []struct {
		name    string
		opts    storage.Options
		want    Config
		wantErr string
	}{
		{
			name: "минимальный набор",
			opts: storage.Options{"bucket": "b"},
			want: Config{Bucket: "b", Region: defaultRegion},
		},
		{
			name: "minio",
			opts: storage.Options{
				"bucket": "b", "endpoint": "http://localhost:9000", "use_path_style": true,
				"access_key_id": "id", "secret_access_key": "secret", "region": "eu-west-1",
			},
			want: Config{
				Bucket: "b", Endpoint: "http://localhost:9000", UsePathStyle: true,
				AccessKeyID: "id", SecretAccessKey: "secret", Region: "eu-west-1",
			},
		},
		{name: "нет бакета", opts: storage.Options{}, wantErr: "bucket"},
		{name: "ключ без секрета", opts: storage.Options{"bucket": "b", "access_key_id": "id"}, wantErr: "access_key_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := configFromOptions(tt.opts)
			if tt.wantErr != "" {
				var optErr *storage.OptionError
				require.ErrorAs(t, err, &optErr)
				assert.Equal(t, tt.wantErr, optErr.Key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
