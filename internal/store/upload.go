package store

import (
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/soundscape-labs/noisewatch/internal/types"
	"github.com/soundscape-labs/noisewatch/internal/util"
)

// S3Config holds S3-compatible storage configuration for off-site
// upload of recording units.
type S3Config struct {
	Endpoint        string `json:"endpoint,omitempty"` // Custom S3 endpoint (empty for AWS)
	Bucket          string `json:"bucket,omitempty"`
	AccessKeyID     string `json:"access_key_id,omitempty"`
	SecretAccessKey string `json:"secret_access_key,omitempty"`
	Prefix          string `json:"prefix,omitempty"` // Object key prefix, default "recordings"
}

// IsConfigured reports whether S3 upload is configured.
func (c *S3Config) IsConfigured() bool {
	return util.IsConfigured(c.Bucket, c.AccessKeyID, c.SecretAccessKey)
}

// prefixOrDefault returns the configured key prefix or "recordings".
func (c *S3Config) prefixOrDefault() string {
	if c.Prefix != "" {
		return c.Prefix
	}
	return "recordings"
}

// newS3Client creates an S3 client for the given configuration.
func newS3Client(cfg *S3Config) *s3.Client {
	creds := credentials.NewStaticCredentialsProvider(
		cfg.AccessKeyID,
		cfg.SecretAccessKey,
		"",
	)

	options := []func(*s3.Options){
		func(o *s3.Options) {
			o.Credentials = creds
			o.Region = "auto"
		},
	}

	if cfg.Endpoint != "" {
		options = append(options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return s3.New(s3.Options{}, options...)
}

// Upload timing constants.
const (
	uploadQueueSize   = 100
	uploadTimeout     = 5 * time.Minute
	uploadMaxAttempts = 3
	uploadRetryInit   = 5 * time.Second
	uploadRetryMax    = 2 * time.Minute
)

// Uploader ships completed recording units to S3-compatible storage in
// the background. Enqueue never blocks the measurement loop; a full
// queue drops the unit locally (it stays on disk for the next retention
// sweep) and logs the fact.
type Uploader struct {
	cfg     S3Config
	client  *s3.Client
	queue   chan types.RecordingUnit
	stopCh  chan struct{}
	wg      sync.WaitGroup
	backoff *util.Backoff
}

// NewUploader returns an Uploader for the given configuration.
func NewUploader(cfg S3Config) *Uploader {
	return &Uploader{
		cfg:     cfg,
		client:  newS3Client(&cfg),
		queue:   make(chan types.RecordingUnit, uploadQueueSize),
		stopCh:  make(chan struct{}),
		backoff: util.NewBackoff(uploadRetryInit, uploadRetryMax),
	}
}

// Start launches the upload worker.
func (u *Uploader) Start() {
	u.wg.Add(1)
	go u.run()
}

// Stop signals the worker, drains pending uploads and waits.
func (u *Uploader) Stop() {
	close(u.stopCh)
	u.wg.Wait()
}

// Enqueue queues a completed unit for upload without blocking.
func (u *Uploader) Enqueue(unit types.RecordingUnit) {
	select {
	case u.queue <- unit:
		slog.Debug("queued unit for upload", "base_name", unit.BaseName)
	default:
		slog.Warn("upload queue full, unit stays local", "base_name", unit.BaseName)
	}
}

// run processes the upload queue until stopped, then drains it.
func (u *Uploader) run() {
	defer u.wg.Done()

	for {
		select {
		case <-u.stopCh:
			for {
				select {
				case unit := <-u.queue:
					u.uploadUnit(unit)
				default:
					return
				}
			}
		case unit := <-u.queue:
			u.uploadUnit(unit)
		}
	}
}

// uploadUnit uploads both artifacts of a unit, retrying with backoff.
// Both objects are re-put on retry so the remote pair is never half
// refreshed.
func (u *Uploader) uploadUnit(unit types.RecordingUnit) {
	var err error
	for attempt := 1; attempt <= uploadMaxAttempts; attempt++ {
		if err = u.putUnit(unit); err == nil {
			u.backoff.Reset()
			slog.Info("upload completed", "base_name", unit.BaseName)
			return
		}

		slog.Error("upload failed", "base_name", unit.BaseName, "attempt", attempt, "error", err)
		if attempt == uploadMaxAttempts {
			return
		}

		select {
		case <-time.After(u.backoff.Next()):
		case <-u.stopCh:
			// Last try on the way out, then give up.
			if err = u.putUnit(unit); err != nil {
				slog.Error("upload abandoned at shutdown", "base_name", unit.BaseName, "error", err)
			}
			return
		}
	}
}

// putUnit uploads the audio artifact and its sidecar.
func (u *Uploader) putUnit(unit types.RecordingUnit) error {
	if err := u.putFile(unit.AudioPath, "audio/flac"); err != nil {
		return err
	}
	return u.putFile(unit.MetadataPath, "application/xml")
}

// putFile uploads one local file under the configured prefix.
func (u *Uploader) putFile(localPath, contentType string) error {
	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()

	f, err := os.Open(localPath)
	if err != nil {
		return util.WrapError("open file for upload", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("failed to close file after upload", "path", localPath, "error", err)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return util.WrapError("stat file for upload", err)
	}

	key := path.Join(u.cfg.prefixOrDefault(), filepath.Base(localPath))
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.cfg.Bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType),
	})
	return err
}
