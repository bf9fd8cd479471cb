package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/mailreminder/internal/common"
	sc "github.com/dmitrijs2005/mailreminder/internal/server/config"
	"github.com/dmitrijs2005/mailreminder/internal/server/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type s3Capture struct {
	bucket, key string
	body        []byte
	presignKey  string
	expires     time.Duration
}

// stubS3 replaces the AWS seams for the duration of the test.
func stubS3(t *testing.T, putErr error) *s3Capture {
	t.Helper()

	origLoad, origNew, origPut, origPresign := loadDefaultAWSConfig, newS3ClientFromConfig, putObject, presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig, newS3ClientFromConfig, putObject, presignGetObject = origLoad, origNew, origPut, origPresign
	})

	c := &s3Capture{}
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{Region: "us-east-1"}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.New(s3.Options{Region: cfg.Region})
	}
	putObject = func(_ *s3.Client, _ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		if putErr != nil {
			return nil, putErr
		}
		c.bucket, c.key = aws.ToString(in.Bucket), aws.ToString(in.Key)
		c.body, _ = io.ReadAll(in.Body)
		return &s3.PutObjectOutput{}, nil
	}
	presignGetObject = func(_ *s3.PresignClient, _ context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		opts := s3.PresignOptions{}
		for _, fn := range optFns {
			fn(&opts)
		}
		c.presignKey, c.expires = aws.ToString(in.Key), opts.Expires
		return &v4.PresignedHTTPRequest{URL: "https://s3.local/" + c.presignKey, Method: http.MethodGet}, nil
	}
	return c
}

func newExportService(t *testing.T, rm *memory.Store) *ExportService {
	t.Helper()
	cfg := &sc.Config{}
	cfg.LoadDefaults()
	return NewExportService(newReminderService(t, rm, time.UTC), cfg, discardLogger())
}

func TestExportKey(t *testing.T) {
	key := ExportKey(ownerID, time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC))
	re := regexp.MustCompile(`^exports/` + ownerID + `/2025/03/07/[0-9a-f-]{36}\.json$`)
	assert.Regexp(t, re, key)
}

func TestExport_UploadsActiveRemindersAndPresigns(t *testing.T) {
	capture := stubS3(t, nil)
	rm := memory.New()
	s := newExportService(t, rm)
	ctx := context.Background()

	_, err := s.reminders.Schedule(ctx, ownerID, ScheduleInput{Message: "keep", ScheduledAt: "2025-01-01T09:00"})
	require.NoError(t, err)
	gone, err := s.reminders.Schedule(ctx, ownerID, ScheduleInput{Message: "gone", ScheduledAt: "2025-01-02T09:00"})
	require.NoError(t, err)
	require.NoError(t, s.reminders.SoftDelete(ctx, gone.ID, ownerID))

	url, err := s.Export(ctx, ownerID)
	require.NoError(t, err)

	assert.Equal(t, "reminder-exports", capture.bucket)
	assert.Equal(t, capture.key, capture.presignKey)
	assert.Equal(t, "https://s3.local/"+capture.key, url)
	assert.Equal(t, 15*time.Minute, capture.expires)

	var exported []map[string]any
	require.NoError(t, json.Unmarshal(capture.body, &exported))
	require.Len(t, exported, 1)
	assert.Equal(t, "keep", exported[0]["message"])
	assert.NotContains(t, exported[0], "deleted")
}

func TestExport_LoadConfigError(t *testing.T) {
	stubS3(t, nil)
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}

	_, err := newExportService(t, memory.New()).Export(context.Background(), ownerID)
	assert.EqualError(t, err, "load-fail")
}

func TestExport_PutError(t *testing.T) {
	stubS3(t, errBoom{})

	_, err := newExportService(t, memory.New()).Export(context.Background(), ownerID)
	assert.ErrorIs(t, err, errBoom{})
}

func TestExport_StoreError(t *testing.T) {
	stubS3(t, nil)
	rm := memory.New()
	rm.ListErr = errBoom{}

	_, err := newExportService(t, rm).Export(context.Background(), ownerID)
	assert.ErrorIs(t, err, common.ErrorStoreUnavailable)
}
