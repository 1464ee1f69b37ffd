package s3client

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/jdillenkofer/filedrop/internal/lifecycle"
	"github.com/jdillenkofer/filedrop/internal/sliceutils"
	"github.com/jdillenkofer/filedrop/internal/storage"
)

// S3API is the part of *s3.Client used by the store.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// PresignAPI is the part of *s3.PresignClient used by the store.
type PresignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

var _ S3API = (*s3.Client)(nil)
var _ PresignAPI = (*s3.PresignClient)(nil)

type s3ClientStore struct {
	*lifecycle.ValidatedLifecycle
	bucket        string
	s3Client      S3API
	presignClient PresignAPI
}

var _ storage.ObjectStore = (*s3ClientStore)(nil)

func NewStore(bucket string, s3Client S3API, presignClient PresignAPI) (storage.ObjectStore, error) {
	if bucket == "" {
		return nil, errors.New("s3 bucket name must not be empty")
	}
	return &s3ClientStore{
		ValidatedLifecycle: lifecycle.NewValidatedLifecycle("S3ClientStore"),
		bucket:             bucket,
		s3Client:           s3Client,
		presignClient:      presignClient,
	}, nil
}

// NewStoreFromClient wires the store to a real client and a presign client derived from it.
func NewStoreFromClient(bucket string, client *s3.Client) (storage.ObjectStore, error) {
	return NewStore(bucket, client, s3.NewPresignClient(client))
}

func isNotFound(err error) bool {
	var notFoundError *types.NotFound
	if errors.As(err, &notFoundError) {
		return true
	}
	var noSuchKeyError *types.NoSuchKey
	if errors.As(err, &noSuchKeyError) {
		return true
	}
	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "NotFound", "NoSuchKey", "404":
			return true
		}
	}
	return false
}

func (rs *s3ClientStore) ObjectExists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, storage.ErrEmptyKey
	}
	_, err := rs.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(rs.bucket),
		Key:    aws.String(key),
	})
	if err != nil && isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (rs *s3ClientStore) ListObjects(ctx context.Context, prefix string, continuationToken *string) (*storage.ListObjectsResult, error) {
	listObjectsResult, err := rs.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:            aws.String(rs.bucket),
		Prefix:            aws.String(prefix),
		ContinuationToken: continuationToken,
		MaxKeys:           aws.Int32(storage.MaxListKeys),
	})
	if err != nil {
		return nil, err
	}
	objects := sliceutils.Map(func(object types.Object) storage.Object {
		return storage.Object{
			Key:          aws.ToString(object.Key),
			Size:         aws.ToInt64(object.Size),
			LastModified: aws.ToTime(object.LastModified),
		}
	}, listObjectsResult.Contents)
	var nextContinuationToken *string
	if aws.ToBool(listObjectsResult.IsTruncated) {
		nextContinuationToken = listObjectsResult.NextContinuationToken
	}
	return &storage.ListObjectsResult{
		Objects:               objects,
		NextContinuationToken: nextContinuationToken,
	}, nil
}

func (rs *s3ClientStore) DeleteObject(ctx context.Context, key string) error {
	if key == "" {
		return storage.ErrEmptyKey
	}
	_, err := rs.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(rs.bucket),
		Key:    aws.String(key),
	})
	return err
}

func (rs *s3ClientStore) PresignGetObject(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", storage.ErrEmptyKey
	}
	presignedRequest, err := rs.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(rs.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", err
	}
	return presignedRequest.URL, nil
}

func (rs *s3ClientStore) PresignPutObject(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", storage.ErrEmptyKey
	}
	presignedRequest, err := rs.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(rs.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", err
	}
	return presignedRequest.URL, nil
}
