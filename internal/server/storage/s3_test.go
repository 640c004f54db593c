package storage

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sc "github.com/dmitrijs2005/contacts/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *sc.Config {
	return &sc.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "minioadmin",
		S3RootPassword: "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		S3Bucket:       "avatars",
	}
}

func restoreSeams(t *testing.T) {
	t.Helper()
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	origPut := putObject
	origGet := presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		putObject = origPut
		presignGetObject = origGet
	})
}

func stubClients(t *testing.T) {
	t.Helper()
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client { return &s3.Client{} }
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient { return &s3.PresignClient{} }
}

func TestNewS3AvatarUploader_AppliesConfig(t *testing.T) {
	restoreSeams(t)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		require.NotNil(t, lo.Credentials)
		creds, err := lo.Credentials.Retrieve(ctx)
		require.NoError(t, err)
		assert.Equal(t, "minioadmin", creds.AccessKeyID)
		return aws.Config{}, nil
	}

	var opts s3.Options
	client := &s3.Client{}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return client
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		assert.Same(t, client, c)
		return &s3.PresignClient{}
	}

	u, err := NewS3AvatarUploader(context.Background(), testConfig())
	require.NoError(t, err)
	assert.Same(t, client, u.client)
	assert.NotNil(t, u.presign)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
}

func TestNewS3AvatarUploader_LoadError(t *testing.T) {
	restoreSeams(t)
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}

	_, err := NewS3AvatarUploader(context.Background(), testConfig())
	assert.EqualError(t, err, "load-fail")
}

func TestUpload_PutObjectThenPresignedGetURL(t *testing.T) {
	restoreSeams(t)
	stubClients(t)

	var putIn *s3.PutObjectInput
	var uploaded []byte
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		require.NotNil(t, c)
		putIn = in
		uploaded, _ = io.ReadAll(in.Body)
		return &s3.PutObjectOutput{}, nil
	}
	var getKey string
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		assert.Equal(t, "avatars", *in.Bucket)
		getKey = *in.Key
		return &v4.PresignedHTTPRequest{URL: "https://s3.local/avatars/" + getKey + "?sig=1"}, nil
	}

	u, err := NewS3AvatarUploader(context.Background(), testConfig())
	require.NoError(t, err)

	url, err := u.Upload(context.Background(), 5, []byte("img"), "image/png")
	require.NoError(t, err)

	require.NotNil(t, putIn)
	assert.Equal(t, "avatars", aws.ToString(putIn.Bucket))
	assert.Equal(t, "image/png", aws.ToString(putIn.ContentType))
	assert.Equal(t, int64(3), aws.ToInt64(putIn.ContentLength))
	assert.Regexp(t, regexp.MustCompile(`^avatars/5/[0-9a-f-]{36}$`), aws.ToString(putIn.Key))
	assert.Equal(t, []byte("img"), uploaded)
	assert.Equal(t, aws.ToString(putIn.Key), getKey)
	assert.Equal(t, "https://s3.local/avatars/"+getKey+"?sig=1", url)
}

func TestUpload_PublicURL(t *testing.T) {
	restoreSeams(t)
	stubClients(t)

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return &s3.PutObjectOutput{}, nil
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		t.Fatal("presigned GET must not be used with a public base URL")
		return nil, nil
	}

	cfg := testConfig()
	cfg.S3PublicURL = "https://cdn.example.com/"
	u, err := NewS3AvatarUploader(context.Background(), cfg)
	require.NoError(t, err)

	url, err := u.Upload(context.Background(), 9, []byte("img"), "image/jpeg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://cdn.example.com/avatars/avatars/9/"), url)
}

func TestUpload_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func()
		want  string
	}{
		{"put object", func() {
			putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
				return nil, errors.New("access denied")
			}
		}, "put object: access denied"},
		{"presign get", func() {
			putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
				return &s3.PutObjectOutput{}, nil
			}
			presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
				return nil, errors.New("get-sign-fail")
			}
		}, "presign get: get-sign-fail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restoreSeams(t)
			stubClients(t)
			tt.setup()

			u, err := NewS3AvatarUploader(context.Background(), testConfig())
			require.NoError(t, err)

			_, err = u.Upload(context.Background(), 1, []byte("x"), "image/png")
			assert.EqualError(t, err, tt.want)
		})
	}
}
