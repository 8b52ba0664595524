package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/kmeansbench"
	"github.com/hupe1980/kmeansbench/blobstore"
	"github.com/hupe1980/kmeansbench/blobstore/minio"
	"github.com/hupe1980/kmeansbench/blobstore/s3"
	"github.com/hupe1980/kmeansbench/codec"
	"github.com/hupe1980/kmeansbench/internal/cpuinfo"
	"github.com/hupe1980/kmeansbench/internal/resource"
)

// ErrUnsupportedScheme is returned by Open for an unknown URL scheme.
var ErrUnsupportedScheme = errors.New("unsupported publish scheme")

// Recorder records a publication. *s3.Ledger implements it.
type Recorder interface {
	Record(ctx context.Context, e s3.Entry) error
}

// Receipt describes one publication.
type Receipt struct {
	Engine  string
	Name    string
	URI     string
	Codec   string
	Rows    int
	Bytes   int64
	Skipped bool
}

type options struct {
	compression codec.Compression
	report      codec.Codec
	rc          *resource.Controller
	recorder    Recorder
	logger      *kmeansbench.Logger
	runID       string
	host        string
	s3Opts      []s3.Option
	now         func() time.Time
}

// Option configures a Publisher.
type Option func(*options)

// WithCompression sets the payload compression. Default: none.
func WithCompression(c codec.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithReportCodec sets the encoding of PublishReport. Default: codec.Default.
func WithReportCodec(c codec.Codec) Option {
	return func(o *options) {
		o.report = c
	}
}

// WithResourceController limits upload slots and throughput.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithRecorder records every upload, typically in an s3.Ledger.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithLogger sets the logger. Default: NoopLogger.
func WithLogger(l *kmeansbench.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithRunID overrides the generated run ID.
func WithRunID(id string) Option {
	return func(o *options) {
		o.runID = id
	}
}

// WithS3Options passes options to the S3 store when the URL scheme is s3.
func WithS3Options(opts ...s3.Option) Option {
	return func(o *options) {
		o.s3Opts = append(o.s3Opts, opts...)
	}
}

// Publisher uploads result files to one store.
type Publisher struct {
	store blobstore.BlobStore
	uri   func(name string) string
	opts  options
}

func applyOptions(opts []Option) options {
	o := options{
		compression: codec.None{},
		report:      codec.Default,
		logger:      kmeansbench.NoopLogger(),
		host:        cpuinfo.Host().String(),
		now:         time.Now,
	}
	for _, fn := range opts {
		fn(&o)
	}
	if o.compression == nil {
		o.compression = codec.None{}
	}
	if o.report == nil {
		o.report = codec.Default
	}
	if o.runID == "" {
		o.runID = uuid.New().String()
	}
	return o
}

// New creates a Publisher for an existing store.
func New(store blobstore.BlobStore, opts ...Option) *Publisher {
	return &Publisher{
		store: store,
		uri:   func(name string) string { return name },
		opts:  applyOptions(opts),
	}
}

// Open creates a Publisher for the store addressed by rawURL.
func Open(ctx context.Context, rawURL string, opts ...Option) (*Publisher, error) {
	if rawURL == "" {
		return nil, kmeansbench.NewArgumentError("publish", rawURL, "empty destination", nil)
	}

	o := applyOptions(opts)

	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Plain paths, including Windows drive letters.
		root := rawURL
		return &Publisher{store: blobstore.NewLocalStore(root), uri: localURI(root), opts: o}, nil
	}

	switch u.Scheme {
	case "file":
		root := u.Path
		if root == "" {
			root = u.Opaque
		}
		return &Publisher{store: blobstore.NewLocalStore(root), uri: localURI(root), opts: o}, nil
	case "mem":
		return &Publisher{
			store: blobstore.NewMemoryStore(),
			uri:   func(name string) string { return "mem://" + name },
			opts:  o,
		}, nil
	case "s3":
		if u.Host == "" {
			return nil, kmeansbench.NewArgumentError("publish", rawURL, "missing bucket", nil)
		}
		s3Opts := append([]s3.Option{s3.WithPrefix(strings.Trim(u.Path, "/"))}, o.s3Opts...)
		store, err := s3.New(ctx, u.Host, s3Opts...)
		if err != nil {
			return nil, fmt.Errorf("open s3 store: %w", err)
		}
		return &Publisher{store: store, uri: store.URI, opts: o}, nil
	case "minio":
		bucket, prefix, _ := strings.Cut(strings.Trim(u.Path, "/"), "/")
		if u.Host == "" || bucket == "" {
			return nil, kmeansbench.NewArgumentError("publish", rawURL, "want minio://host/bucket[/prefix]", nil)
		}
		store, err := minio.NewFromEnv(u.Host, bucket, prefix)
		if err != nil {
			return nil, fmt.Errorf("open minio store: %w", err)
		}
		return &Publisher{
			store: store,
			uri: func(name string) string {
				return "minio://" + u.Host + "/" + bucket + "/" + strings.TrimPrefix(prefix+"/"+name, "/")
			},
			opts: o,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

func localURI(root string) func(string) string {
	return func(name string) string {
		return filepath.Join(root, filepath.FromSlash(name))
	}
}

// Store returns the underlying blob store.
func (p *Publisher) Store() blobstore.BlobStore {
	return p.store
}

// RunID returns the ID recorded with every upload.
func (p *Publisher) RunID() string {
	return p.opts.runID
}

// ObjectName returns the object name used for an engine's result file.
func (p *Publisher) ObjectName(engine string) string {
	return engine + ".csv" + p.opts.compression.Extension()
}

// Publish uploads the file at path as the result of engine. rows is recorded
// in the ledger only.
func (p *Publisher) Publish(ctx context.Context, engine, path string, rows int) (Receipt, error) {
	name := p.ObjectName(engine)
	rcpt := Receipt{
		Engine: engine,
		Name:   name,
		URI:    p.uri(name),
		Codec:  p.opts.compression.Name(),
		Rows:   rows,
	}

	exists, err := blobstore.Exists(ctx, p.store, name)
	if err != nil {
		p.opts.logger.LogPublish(ctx, engine, name, 0, err)
		return rcpt, err
	}
	if exists {
		rcpt.Skipped = true
		p.opts.logger.InfoContext(ctx, "object exists, not publishing", "engine", engine, "key", name)
		return rcpt, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		p.opts.logger.LogPublish(ctx, engine, name, 0, err)
		return rcpt, err
	}

	payload, err := p.opts.compression.Compress(data)
	if err != nil {
		err = fmt.Errorf("compress %s: %w", name, err)
		p.opts.logger.LogPublish(ctx, engine, name, 0, err)
		return rcpt, err
	}
	rcpt.Bytes = int64(len(payload))

	if err := p.put(ctx, name, payload); err != nil {
		p.opts.logger.LogPublish(ctx, engine, name, 0, err)
		return rcpt, err
	}

	if p.opts.recorder != nil {
		err := p.opts.recorder.Record(ctx, s3.Entry{
			RunID:     p.opts.runID,
			Engine:    engine,
			URI:       rcpt.URI,
			Codec:     rcpt.Codec,
			Rows:      rows,
			Bytes:     rcpt.Bytes,
			Host:      p.opts.host,
			Published: p.opts.now().UTC(),
		})
		if err != nil {
			err = fmt.Errorf("record %s: %w", name, err)
			p.opts.logger.LogPublish(ctx, engine, name, len(payload), err)
			return rcpt, err
		}
	}

	p.opts.logger.LogPublish(ctx, engine, name, len(payload), nil)
	return rcpt, nil
}

// PublishReport uploads v as "report-<runID>.json". An existing report is
// overwritten.
func (p *Publisher) PublishReport(ctx context.Context, v any) (string, error) {
	data, err := p.opts.report.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	name := "report-" + p.opts.runID + ".json"
	if err := p.put(ctx, name, data); err != nil {
		p.opts.logger.LogPublish(ctx, "", name, 0, err)
		return "", err
	}
	p.opts.logger.LogPublish(ctx, "", name, len(data), nil)
	return p.uri(name), nil
}

func (p *Publisher) put(ctx context.Context, name string, data []byte) error {
	if !p.opts.rc.TryAcquireUpload() {
		p.opts.logger.DebugContext(ctx, "waiting for upload slot", "object", name)
		if err := p.opts.rc.AcquireUpload(ctx); err != nil {
			return err
		}
	}
	defer p.opts.rc.ReleaseUpload()

	r := resource.NewRateLimitedReader(ctx, bytes.NewReader(data), p.opts.rc)
	if err := p.store.Put(ctx, name, r, int64(len(data))); err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}
	return nil
}

// Fetch downloads and decompresses a published engine result. The download
// shares the publish IO limit.
func (p *Publisher) Fetch(ctx context.Context, engine string) ([]byte, error) {
	rc, err := p.store.Open(ctx, p.ObjectName(engine))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	var buf bytes.Buffer
	if _, err := io.Copy(resource.NewRateLimitedWriter(ctx, &buf, p.opts.rc), rc); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", engine, err)
	}
	return p.opts.compression.Decompress(buf.Bytes())
}
