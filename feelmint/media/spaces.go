package media

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// SpacesUploader writes captured media straight to an S3-compatible bucket
// (DigitalOcean Spaces). Alternative to the presigned path for deployments
// that own their storage.
type SpacesUploader struct {
	client *s3.Client
	bucket string
	region string
	root   string
}

func NewSpacesUploader(key, secret, region, bucket, root string) (*SpacesUploader, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.digitaloceanspaces.com", region),
		}, nil
	})

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("media: load spaces config: %w", err)
	}

	return &SpacesUploader{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		region: region,
		root:   strings.TrimPrefix(root, "/"),
	}, nil
}

func (u *SpacesUploader) Upload(ctx context.Context, dest Destination, frame Frame) (string, error) {
	if len(frame.Data) == 0 {
		return "", fmt.Errorf("media: empty frame")
	}

	key, err := u.objectKey(dest.FileURL)
	if err != nil {
		return "", err
	}

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(frame.Data),
		ContentType: aws.String(frame.MIME),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("media: put object %s: %w", key, err)
	}

	if dest.FileURL != "" {
		return dest.FileURL, nil
	}
	return fmt.Sprintf("https://%s.%s.digitaloceanspaces.com/%s", u.bucket, u.region, key), nil
}

// objectKey maps the destination's public URL onto a bucket key under root.
func (u *SpacesUploader) objectKey(fileURL string) (string, error) {
	if fileURL == "" {
		return "", fmt.Errorf("media: destination has no file url")
	}
	parsed, err := url.Parse(fileURL)
	if err != nil {
		return "", fmt.Errorf("media: bad file url: %w", err)
	}
	key := strings.TrimPrefix(parsed.Path, "/")
	if u.root != "" {
		key = path.Join(u.root, key)
	}
	return key, nil
}
