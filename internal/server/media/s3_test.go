package media

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	puts    []*s3.PutObjectInput
	bodies  [][]byte
	deletes []*s3.DeleteObjectInput
	err     error
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, _ := io.ReadAll(in.Body)
	f.puts = append(f.puts, in)
	f.bodies = append(f.bodies, b)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deletes = append(f.deletes, in)
	return &s3.DeleteObjectOutput{}, nil
}

func fixedHost(objects objectAPI, opts S3Options) *S3Host {
	h := newS3Host(objects, opts)
	h.now = func() time.Time { return time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC) }
	return h
}

func TestS3Host_Upload(t *testing.T) {
	objects := &fakeObjects{}
	h := fixedHost(objects, S3Options{Bucket: "memorial", BaseEndpoint: "http://minio:9000/"})

	up, err := h.Upload(context.Background(), Image{Data: pngHeader, ContentType: "image/png"})
	require.NoError(t, err)

	require.Len(t, objects.puts, 1)
	in := objects.puts[0]
	assert.Equal(t, "memorial", aws.ToString(in.Bucket))
	assert.Equal(t, "image/png", aws.ToString(in.ContentType))
	assert.Equal(t, int64(len(pngHeader)), aws.ToInt64(in.ContentLength))
	assert.Equal(t, pngHeader, objects.bodies[0])

	assert.Regexp(t, regexp.MustCompile(`^memorial/2025/03/[0-9a-f-]{36}\.png$`), up.PublicID)
	assert.Equal(t, "http://minio:9000/memorial/"+up.PublicID, up.URL)
}

func TestS3Host_PublicURL(t *testing.T) {
	h := fixedHost(&fakeObjects{}, S3Options{Bucket: "b", Region: "eu-west-1"})
	assert.Equal(t, "https://b.s3.eu-west-1.amazonaws.com/k", h.publicURL("k"))

	h = fixedHost(&fakeObjects{}, S3Options{Bucket: "b", PublicURL: "https://cdn.example/"})
	assert.Equal(t, "https://cdn.example/k", h.publicURL("k"))
}

func TestS3Host_Errors(t *testing.T) {
	h := fixedHost(&fakeObjects{err: errors.New("access denied")}, S3Options{Bucket: "b"})

	_, err := h.Upload(context.Background(), Image{Data: pngHeader, ContentType: "image/png"})
	assert.ErrorContains(t, err, "access denied")

	err = h.Delete(context.Background(), "memorial/x.png")
	assert.ErrorContains(t, err, "access denied")
}

func TestS3Host_Delete(t *testing.T) {
	objects := &fakeObjects{}
	h := fixedHost(objects, S3Options{Bucket: "b"})

	require.NoError(t, h.Delete(context.Background(), "memorial/x.png"))
	require.Len(t, objects.deletes, 1)
	assert.Equal(t, "memorial/x.png", aws.ToString(objects.deletes[0].Key))
}

func TestNewS3Host_Seams(t *testing.T) {
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() { loadDefaultAWSConfig, newS3ClientFromConfig = origLoad, origNew })

	var lo awsconfig.LoadOptions
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}

	h, err := NewS3Host(context.Background(), S3Options{
		Region: "us-east-1", AccessKey: "minio", SecretKey: "minio123",
		Bucket: "memorial", BaseEndpoint: "http://127.0.0.1:9000",
	})
	require.NoError(t, err)
	require.NotNil(t, h)

	assert.Equal(t, "us-east-1", lo.Region)
	assert.NotNil(t, lo.Credentials)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
}

func TestNewS3Host_ConfigError(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no region")
	}

	_, err := NewS3Host(context.Background(), S3Options{})
	assert.ErrorContains(t, err, "no region")
}
