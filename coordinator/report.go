package coordinator

import (
	"bytes"
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	json "github.com/goccy/go-json"
	"github.com/gurre/awsop/aws"
	"github.com/gurre/awsop/manifest"
	"github.com/gurre/awsop/metrics"
)

// S3ReportUploader stores the final report as a JSON object.
type S3ReportUploader struct {
	client aws.S3Client
}

// NewS3ReportUploader creates an uploader writing through client.
func NewS3ReportUploader(client aws.S3Client) *S3ReportUploader {
	return &S3ReportUploader{client: client}
}

// UploadReport implements ReportUploader.
func (u *S3ReportUploader) UploadReport(ctx context.Context, uri string, report metrics.Report) error {
	bucket, key, err := manifest.ParseS3URI(uri)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      awssdk.String(bucket),
		Key:         awssdk.String(key),
		Body:        bytes.NewReader(data),
		ContentType: awssdk.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload report to %s: %w", uri, err)
	}
	return nil
}
