package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/mailreminder/internal/logging"
	sc "github.com/dmitrijs2005/mailreminder/internal/server/config"
	"github.com/google/uuid"
)

const exportLinkValidity = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// ExportService writes a user's active reminders to object storage as JSON
// and hands back a short-lived download link.
type ExportService struct {
	reminders *ReminderService
	config    *sc.Config
	logger    logging.Logger
}

func NewExportService(reminders *ReminderService, config *sc.Config, logger logging.Logger) *ExportService {
	return &ExportService{
		reminders: reminders,
		config:    config,
		logger:    logger.With("module", "export"),
	}
}

// ExportKey returns the object key for a new export of userID's reminders.
func ExportKey(userID string, d time.Time) string {
	return fmt.Sprintf("exports/%s/%04d/%02d/%02d/%v.json", userID, d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *ExportService) getClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

// Export uploads the user's active reminders and returns a presigned GET URL
// valid for 15 minutes.
func (s *ExportService) Export(ctx context.Context, userID string) (string, error) {
	list, err := s.reminders.ListActive(ctx, userID)
	if err != nil {
		return "", err
	}

	body, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error encoding reminders: %w", err)
	}

	client, err := s.getClient(ctx)
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket
	key := ExportKey(userID, time.Now())

	if _, err := putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	}); err != nil {
		s.logger.Error(ctx, "uploading export", "key", key, "error", err)
		return "", fmt.Errorf("error uploading export: %w", err)
	}

	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(exportLinkValidity))
	if err != nil {
		return "", fmt.Errorf("error presigning export: %w", err)
	}

	s.logger.Info(ctx, "reminders exported", "user_id", userID, "key", key, "count", len(list))
	return req.URL, nil
}
