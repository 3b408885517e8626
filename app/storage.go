// Package app resume storage: uploads go straight to S3 via presigned URLs so
// resume bytes never pass through the API.
package app

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/SatVerseX/mockmate-api/app/config"
)

const (
	presignExpiry     = 15 * time.Minute
	maxFilenameLength = 100
)

func resumePresignClient(ctx context.Context, cfg *config.Config) (*s3.PresignClient, error) {
	if cfg.S3.Bucket == "" {
		return nil, errors.New("S3 bucket not configured")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3.Region))
	}
	if cfg.S3.AccessKey != "" && cfg.S3.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3.AccessKey, cfg.S3.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.Endpoint != "" {
			// MinIO in local development needs path-style addressing.
			o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
			o.UsePathStyle = true
		}
	})

	return s3.NewPresignClient(client), nil
}

// resumeObjectKey builds a per-user object key that never collides across
// uploads of the same filename.
func resumeObjectKey(userID, filename string) string {
	return fmt.Sprintf("resumes/%s/%s/%s", userID, uuid.NewString(), sanitizeFilename(filename))
}

// sanitizeFilename reduces a client-supplied name to a safe object key segment.
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	out = strings.Trim(out, "._")
	if len(out) > maxFilenameLength {
		out = out[len(out)-maxFilenameLength:]
	}
	if out == "" {
		return "resume.pdf"
	}
	return out
}

// userOwnsResumeKey guards the confirm endpoint against claiming another
// user's object.
func userOwnsResumeKey(userID, key string) bool {
	if userID == "" || strings.Contains(key, "..") {
		return false
	}
	return strings.HasPrefix(key, "resumes/"+userID+"/")
}

func presignResumeUpload(ctx context.Context, cfg *config.Config, key string) (string, error) {
	presigner, err := resumePresignClient(ctx, cfg)
	if err != nil {
		return "", err
	}

	req, err := presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(cfg.S3.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign put: %w", err)
	}
	return req.URL, nil
}

func presignResumeDownload(ctx context.Context, cfg *config.Config, key, filename string) (string, error) {
	presigner, err := resumePresignClient(ctx, cfg)
	if err != nil {
		return "", err
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(cfg.S3.Bucket),
		Key:    aws.String(key),
	}
	if filename != "" {
		input.ResponseContentDisposition = aws.String(
			fmt.Sprintf("attachment; filename=%q", sanitizeFilename(filename)),
		)
	}

	req, err := presigner.PresignGetObject(ctx, input, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}
