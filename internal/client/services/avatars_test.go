package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/xplit/internal/common"
)

type fakeS3 struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, f.err
}

func withS3Seams(t *testing.T, fake *fakeS3, check func(lo awsconfig.LoadOptions, o s3.Options)) {
	t.Helper()
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() { loadDefaultAWSConfig, newS3ClientFromConfig = origLoad, origNew })

	var lo awsconfig.LoadOptions
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		return aws.Config{Region: lo.Region}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) s3PutAPI {
		var o s3.Options
		for _, fn := range optFns {
			fn(&o)
		}
		check(lo, o)
		return fake
	}
}

func TestNewS3AvatarStore_CustomEndpoint(t *testing.T) {
	fake := &fakeS3{}
	withS3Seams(t, fake, func(lo awsconfig.LoadOptions, o s3.Options) {
		assert.Equal(t, "eu-central-1", lo.Region)
		assert.NotNil(t, lo.Credentials)
		require.NotNil(t, o.BaseEndpoint)
		assert.Equal(t, "http://127.0.0.1:9000", *o.BaseEndpoint)
		assert.True(t, o.UsePathStyle)
	})

	st, err := NewS3AvatarStore(context.Background(), AvatarConfig{
		Bucket:    "avatars",
		Region:    "eu-central-1",
		Endpoint:  "http://127.0.0.1:9000/",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	})
	require.NoError(t, err)

	url, err := st.Put(context.Background(), "u1/avatar 1.jpg", strings.NewReader("jpeg"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000/avatars/u1/avatar%201.jpg", url)
	assert.Equal(t, "avatars", *fake.in.Bucket)
	assert.Equal(t, "u1/avatar 1.jpg", *fake.in.Key)
	assert.Equal(t, "image/jpeg", *fake.in.ContentType)
	assert.Equal(t, []byte("jpeg"), fake.body)
}

func TestNewS3AvatarStore_DefaultsAndPublicBase(t *testing.T) {
	withS3Seams(t, &fakeS3{}, func(lo awsconfig.LoadOptions, o s3.Options) {
		assert.Nil(t, lo.Credentials)
		assert.Nil(t, o.BaseEndpoint)
	})

	st, err := NewS3AvatarStore(context.Background(), AvatarConfig{Bucket: "avatars", Region: "us-east-1"})
	require.NoError(t, err)
	assert.Equal(t, "https://avatars.s3.us-east-1.amazonaws.com", st.publicBaseURL)

	st, err = NewS3AvatarStore(context.Background(), AvatarConfig{Bucket: "avatars", PublicBaseURL: "https://cdn.example/a/"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/a", st.publicBaseURL)
}

func TestNewS3AvatarStore_Errors(t *testing.T) {
	_, err := NewS3AvatarStore(context.Background(), AvatarConfig{})
	require.ErrorIs(t, err, ErrAvatarStorageDisabled)

	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })
	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}
	_, err = NewS3AvatarStore(context.Background(), AvatarConfig{Bucket: "b"})
	require.Error(t, err)
}

func TestS3AvatarStore_Put(t *testing.T) {
	fake := &fakeS3{err: errors.New("denied")}
	st := &S3AvatarStore{client: fake, bucket: "b", publicBaseURL: "https://x"}

	_, err := st.Put(context.Background(), "k", strings.NewReader("x"), "image/png")
	require.Error(t, err)

	big := io.LimitReader(neverEnding('a'), MaxAvatarSize+10)
	_, err = st.Put(context.Background(), "k", big, "image/png")
	require.ErrorIs(t, err, common.ErrValidation)
}

type neverEnding byte

func (b neverEnding) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(b)
	}
	return len(p), nil
}
