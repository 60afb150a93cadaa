package store

import (
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// unitTimePattern matches the timestamp segment of a unit base name.
var unitTimePattern = regexp.MustCompile(`(\d{8}T\d{6}Z)`)

// cleanupHour is the local hour at which the daily sweep runs.
const cleanupHour = 3

// Cleaner deletes recording units older than the retention window,
// locally and (when upload is configured) remotely. Retention of 0
// keeps everything and disables the sweep.
type Cleaner struct {
	dir           string
	retentionDays int
	s3cfg         *S3Config
	client        *s3.Client
	stopCh        chan struct{}
}

// NewCleaner returns a Cleaner for the store directory. Pass a nil or
// unconfigured S3Config to sweep local files only.
func NewCleaner(dir string, retentionDays int, s3cfg *S3Config) *Cleaner {
	c := &Cleaner{
		dir:           dir,
		retentionDays: retentionDays,
		s3cfg:         s3cfg,
		stopCh:        make(chan struct{}),
	}
	if s3cfg != nil && s3cfg.IsConfigured() {
		c.client = newS3Client(s3cfg)
	}
	return c
}

// Start launches the daily sweep scheduler. No-op when retention is 0.
func (c *Cleaner) Start() {
	if c.retentionDays <= 0 {
		return
	}
	go c.run()
}

// Stop halts the scheduler.
func (c *Cleaner) Stop() {
	close(c.stopCh)
}

// run sleeps until the next 03:00 and sweeps, forever.
func (c *Cleaner) run() {
	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), cleanupHour, 0, 0, 0, now.Location())
		if !now.Before(next) {
			next = next.Add(24 * time.Hour)
		}

		slog.Info("retention sweep scheduled", "at", next.Format(time.DateTime))

		select {
		case <-time.After(next.Sub(now)):
			c.sweep()
		case <-c.stopCh:
			return
		}
	}
}

// sweep removes units older than the retention window.
func (c *Cleaner) sweep() {
	cutoff := time.Now().AddDate(0, 0, -c.retentionDays)
	c.sweepLocal(cutoff)
	if c.client != nil {
		c.sweepRemote(cutoff)
	}
}

// sweepLocal deletes expired local artifacts.
func (c *Cleaner) sweepLocal(cutoff time.Time) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		slog.Warn("retention sweep: failed to read directory", "path", c.dir, "error", err)
		return
	}

	var deleted int
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "noisewatch-") {
			continue
		}

		ts, ok := parseUnitTime(entry.Name())
		if !ok || !ts.Before(cutoff) {
			continue
		}

		p := filepath.Join(c.dir, entry.Name())
		if err := os.Remove(p); err != nil {
			slog.Warn("retention sweep: failed to delete file", "path", p, "error", err)
		} else {
			deleted++
		}
	}

	if deleted > 0 {
		slog.Info("retention sweep: deleted local files", "count", deleted)
	}
}

// sweepRemote deletes expired S3 objects under the upload prefix.
func (c *Cleaner) sweepRemote(cutoff time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	prefix := path.Join(c.s3cfg.prefixOrDefault(), "noisewatch-")

	var deleted int
	var continuationToken *string
	for {
		input := &s3.ListObjectsV2Input{
			Bucket: aws.String(c.s3cfg.Bucket),
			Prefix: aws.String(prefix),
		}
		if continuationToken != nil {
			input.ContinuationToken = continuationToken
		}

		output, err := c.client.ListObjectsV2(ctx, input)
		if err != nil {
			slog.Warn("retention sweep: failed to list S3 objects", "bucket", c.s3cfg.Bucket, "error", err)
			return
		}

		for _, obj := range output.Contents {
			key := aws.ToString(obj.Key)
			ts, ok := parseUnitTime(filepath.Base(key))
			if !ok || !ts.Before(cutoff) {
				continue
			}

			_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(c.s3cfg.Bucket),
				Key:    obj.Key,
			})
			if err != nil {
				slog.Warn("retention sweep: failed to delete S3 object", "key", key, "error", err)
			} else {
				deleted++
			}
		}

		if !aws.ToBool(output.IsTruncated) {
			break
		}
		continuationToken = output.NextContinuationToken
	}

	if deleted > 0 {
		slog.Info("retention sweep: deleted S3 objects", "count", deleted)
	}
}

// parseUnitTime extracts the timestamp from a unit file name.
func parseUnitTime(name string) (time.Time, bool) {
	matches := unitTimePattern.FindStringSubmatch(name)
	if len(matches) < 2 {
		return time.Time{}, false
	}
	ts, err := time.Parse(baseNameTimeLayout, matches[1])
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
