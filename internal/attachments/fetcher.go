package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/pkg/logging"
)

var fetchTracer = otel.Tracer("appraisal.internal.attachments.fetch")

// DefaultFetchTimeout bounds a single download when none is configured.
const DefaultFetchTimeout = 15 * time.Second

// S3API is the subset of the S3 client used to read s3:// attachments.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Descriptor points at a file hosted by the upstream form platform.
type Descriptor struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Type     string `json:"type"`
}

// Result is the outcome of a batch fetch.
type Result struct {
	Admitted []Payload
	Omitted  []Omission
}

// Fetcher downloads attachment descriptors concurrently and admits them
// against Limits.
type Fetcher struct {
	client  *http.Client
	s3      S3API
	limits  Limits
	timeout time.Duration
	logger  *logging.Logger
}

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	Limits  Limits
	Timeout time.Duration
	Client  *http.Client
	S3      S3API
}

// NewFetcher creates a Fetcher. S3 may be nil, in which case s3:// URLs are omitted.
func NewFetcher(cfg FetcherConfig, logger *logging.Logger) *Fetcher {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultFetchTimeout
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	return &Fetcher{
		client:  cfg.Client,
		s3:      cfg.S3,
		limits:  cfg.Limits,
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// Fetch downloads the first MaxCount descriptors in parallel and waits for
// all of them. Each download has its own timeout. Failures become omissions.
func (f *Fetcher) Fetch(ctx context.Context, descriptors []Descriptor) Result {
	considered := descriptors
	if f.limits.MaxCount > 0 && len(considered) > f.limits.MaxCount {
		considered = considered[:f.limits.MaxCount]
	}

	candidates := make([]Candidate, len(considered))
	var wg sync.WaitGroup
	for i, d := range considered {
		wg.Add(1)
		go func(i int, d Descriptor) {
			defer wg.Done()
			data, err := f.fetchOne(ctx, d)
			candidates[i] = Candidate{
				Filename: filenameFor(d, i),
				Type:     d.Type,
				Data:     data,
				Err:      err,
			}
		}(i, d)
	}
	wg.Wait()

	admitted, omitted := Admit(candidates, f.limits)
	for _, d := range descriptors[len(considered):] {
		omitted = append(omitted, Omission{Filename: filenameFor(d, -1), Reason: ReasonCountLimit})
	}
	for _, o := range omitted {
		f.logger.Warn("attachment omitted", "filename", o.Filename, "reason", o.Reason, "error", o.Err)
	}
	return Result{Admitted: admitted, Omitted: omitted}
}

func (f *Fetcher) fetchOne(ctx context.Context, d Descriptor) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	ctx, span := fetchTracer.Start(ctx, "attachments.fetch", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	raw := strings.TrimSpace(d.URL)
	u, err := url.Parse(raw)
	if err != nil || raw == "" {
		err = fmt.Errorf("attachments: invalid url %q", raw)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("appraisal.attachment.scheme", u.Scheme))

	var data []byte
	switch u.Scheme {
	case "http", "https":
		data, err = f.fetchHTTP(ctx, u.String())
	case "s3":
		data, err = f.fetchS3(ctx, u.Host, strings.TrimPrefix(u.Path, "/"))
	default:
		err = fmt.Errorf("attachments: unsupported scheme %q", u.Scheme)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("appraisal.attachment.bytes", len(data)))
	return data, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("attachments: build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("attachments: get %s: %w", target, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("attachments: get %s: status %d", target, resp.StatusCode)
	}
	return f.readCapped(resp.Body)
}

func (f *Fetcher) fetchS3(ctx context.Context, bucket, key string) ([]byte, error) {
	if f.s3 == nil {
		return nil, errors.New("attachments: s3 client not configured")
	}
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("attachments: invalid s3 location %q/%q", bucket, key)
	}
	out, err := f.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("attachments: s3 get %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()
	return f.readCapped(out.Body)
}

// readCapped reads one byte past the per-file limit so that Admit can tell
// an oversize file apart from one exactly at the limit.
func (f *Fetcher) readCapped(r io.Reader) ([]byte, error) {
	if f.limits.MaxEachBytes > 0 {
		r = io.LimitReader(r, f.limits.MaxEachBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("attachments: read body: %w", err)
	}
	return data, nil
}

func filenameFor(d Descriptor, index int) string {
	if name := strings.TrimSpace(d.Filename); name != "" {
		return name
	}
	if u, err := url.Parse(strings.TrimSpace(d.URL)); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" && base != "" {
			return base
		}
	}
	if index >= 0 {
		return fmt.Sprintf("photo-%d", index+1)
	}
	return "photo"
}
