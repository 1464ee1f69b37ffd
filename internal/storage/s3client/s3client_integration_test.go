package s3client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/docker/go-connections/nat"
	testutils "github.com/jdillenkofer/filedrop/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const minioUser = "filedrop"
const minioPassword = "filedrop-secret"
const integrationBucket = "filedrop-it"

func startMinio(t *testing.T) string {
	ctx := context.Background()
	internalPort, err := nat.NewPort("tcp", "9000")
	require.NoError(t, err)

	req := testcontainers.ContainerRequest{
		Image:        *testutils.MinioImage,
		ExposedPorts: []string{"9000/tcp"},
		Cmd:          []string{"server", "/data"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     minioUser,
			"MINIO_ROOT_PASSWORD": minioPassword,
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(internalPort),
			wait.ForHTTP("/minio/health/live").WithPort(internalPort),
		),
	}
	minioContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	testcontainers.CleanupContainer(t, minioContainer)
	require.NoError(t, err)

	host, err := minioContainer.Host(ctx)
	require.NoError(t, err)
	externalPort, err := minioContainer.MappedPort(ctx, internalPort)
	require.NoError(t, err)
	return fmt.Sprintf("http://%s:%s", host, externalPort.Port())
}

func setupMinioClient(t *testing.T, endpoint string) *s3.Client {
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(minioUser, minioPassword, "")),
	)
	require.NoError(t, err)
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String(endpoint)
	})
}

func TestS3ClientStoreAgainstMinio(t *testing.T) {
	testutils.SkipIfNotIntegration(t)
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	endpoint := startMinio(t)
	client := setupMinioClient(t, endpoint)
	_, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(integrationBucket)})
	require.NoError(t, err)

	store, err := NewStoreFromClient(integrationBucket, client)
	require.NoError(t, err)
	require.NoError(t, store.Start(ctx))
	defer func() {
		assert.NoError(t, store.Stop(ctx))
	}()

	key := "users/u1/hello.txt"
	body := []byte("Hello, world!")

	exists, err := store.ObjectExists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	uploadUrl, err := store.PresignPutObject(ctx, key, time.Minute)
	require.NoError(t, err)
	putRequest, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadUrl, bytes.NewReader(body))
	require.NoError(t, err)
	putResponse, err := http.DefaultClient.Do(putRequest)
	require.NoError(t, err)
	putResponse.Body.Close()
	require.Equal(t, http.StatusOK, putResponse.StatusCode)

	exists, err = store.ObjectExists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	listResult, err := store.ListObjects(ctx, "users/u1/", nil)
	require.NoError(t, err)
	require.Len(t, listResult.Objects, 1)
	assert.Equal(t, key, listResult.Objects[0].Key)
	assert.Equal(t, int64(len(body)), listResult.Objects[0].Size)

	otherListResult, err := store.ListObjects(ctx, "users/u2/", nil)
	require.NoError(t, err)
	assert.Empty(t, otherListResult.Objects)

	downloadUrl, err := store.PresignGetObject(ctx, key, time.Minute)
	require.NoError(t, err)
	getResponse, err := http.Get(downloadUrl)
	require.NoError(t, err)
	downloaded, err := io.ReadAll(getResponse.Body)
	getResponse.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, body, downloaded)

	require.NoError(t, store.DeleteObject(ctx, key))
	exists, err = store.ObjectExists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}
