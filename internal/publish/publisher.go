// Package publish uploads episodes to S3-compatible storage and maintains the podcast feed.
package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/raphaelgruber/briefcast/internal/config"
	"github.com/raphaelgruber/briefcast/internal/metrics"
	"github.com/raphaelgruber/briefcast/internal/models"
)

// FeedKey is the object key of the podcast feed.
const FeedKey = "feed.xml"

// EpisodePrefix is the key prefix for uploaded episodes.
const EpisodePrefix = "episodes/"

// ObjectStore is the subset of the S3 API the publisher uses.
type ObjectStore interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var _ ObjectStore = (*s3.Client)(nil)

// NewS3Client creates a client for the configured R2 (or other S3-compatible) endpoint.
func NewS3Client(ctx context.Context, cfg config.Config) (*s3.Client, error) {
	creds := credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.R2Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	if cfg.R2EndpointURL == "" {
		return s3.NewFromConfig(awsCfg), nil
	}
	endpoint := cfg.R2EndpointURL
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = &endpoint
		o.UsePathStyle = true
	}), nil
}

// Settings describes the bucket and the channel metadata.
type Settings struct {
	Bucket       string
	PublicDomain string
	Title        string
	Author       string
	Description  string
}

// SettingsFromConfig extracts publisher settings.
func SettingsFromConfig(cfg config.Config) Settings {
	return Settings{
		Bucket:       cfg.R2BucketName,
		PublicDomain: cfg.R2PublicDomain,
		Title:        cfg.PodcastTitle,
		Author:       cfg.PodcastAuthor,
		Description:  "Automated Australian market briefings.",
	}
}

// Publisher uploads episodes and rewrites the feed.
type Publisher struct {
	store    ObjectStore
	settings Settings
	metrics  *metrics.Collector
	logger   *slog.Logger
}

// New creates a Publisher. m may be nil.
func New(store ObjectStore, settings Settings, m *metrics.Collector, logger *slog.Logger) *Publisher {
	return &Publisher{
		store:    store,
		settings: settings,
		metrics:  m,
		logger:   config.Component(logger, "publisher"),
	}
}

// Publish uploads the episode media, adds it to the feed, and returns the public feed URL.
func (p *Publisher) Publish(ctx context.Context, ep models.Episode) (string, error) {
	start := time.Now()
	defer p.metrics.Since(metrics.OpPublish, start)

	key := EpisodePrefix + ep.FileName()
	size, err := p.uploadFile(ctx, key, ep.MediaPath)
	if err != nil {
		return "", err
	}
	p.logger.Info("uploaded episode", "key", key, "bytes", size)

	feed, err := p.loadFeed(ctx)
	if err != nil {
		return "", err
	}

	mediaURL := p.publicURL(key)
	feed.Add(FeedEpisode{
		GUID:        mediaURL,
		Title:       ep.Title,
		Summary:     ep.Summary,
		URL:         mediaURL,
		Length:      size,
		Duration:    ep.Duration,
		PublishedAt: ep.PublishedAt,
	})

	body, err := feed.Render()
	if err != nil {
		return "", err
	}
	if err := p.put(ctx, FeedKey, bytes.NewReader(body), int64(len(body)), "application/rss+xml"); err != nil {
		return "", fmt.Errorf("upload feed: %w", err)
	}

	feedURL := p.publicURL(FeedKey)
	p.logger.Info("updated feed", "url", feedURL, "episodes", len(feed.Episodes))
	return feedURL, nil
}

func (p *Publisher) uploadFile(ctx context.Context, key, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open episode: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat episode: %w", err)
	}
	if err := p.put(ctx, key, f, info.Size(), "audio/mpeg"); err != nil {
		return 0, fmt.Errorf("upload episode: %w", err)
	}
	return info.Size(), nil
}

func (p *Publisher) put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := p.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.settings.Bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	return err
}

// loadFeed reads the current feed, starting a new one when none exists yet.
func (p *Publisher) loadFeed(ctx context.Context) (Feed, error) {
	out, err := p.store.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.settings.Bucket),
		Key:    aws.String(FeedKey),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			p.logger.Info("no existing feed, creating one")
			return p.newFeed(), nil
		}
		return Feed{}, fmt.Errorf("fetch feed: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return Feed{}, fmt.Errorf("read feed: %w", err)
	}
	feed, err := ParseFeed(data)
	if err != nil {
		return Feed{}, err
	}
	feed.Title = p.settings.Title
	feed.Author = p.settings.Author
	return feed, nil
}

func (p *Publisher) newFeed() Feed {
	return Feed{
		Title:       p.settings.Title,
		Link:        p.baseURL(),
		Description: p.settings.Description,
		Author:      p.settings.Author,
		Language:    "en-au",
	}
}

func (p *Publisher) baseURL() string {
	d := strings.TrimRight(p.settings.PublicDomain, "/")
	if d != "" && !strings.Contains(d, "://") {
		d = "https://" + d
	}
	return d
}

func (p *Publisher) publicURL(key string) string {
	return p.baseURL() + "/" + key
}
