// Package writer persists the purchase-attempt audit trail as parquet files
// in S3, partitioned by date and hour.
package writer

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	appconfig "giftsniper/config"
	"giftsniper/logger"
	"giftsniper/models"
)

// ParquetRecord is the audit row layout in the parquet files.
type ParquetRecord struct {
	AttemptID  string  `parquet:"name=attempt_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	ListingID  string  `parquet:"name=listing_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Collection string  `parquet:"name=collection, type=BYTE_ARRAY, convertedtype=UTF8"`
	Model      string  `parquet:"name=model, type=BYTE_ARRAY, convertedtype=UTF8"`
	Price      float64 `parquet:"name=price, type=DOUBLE"`
	Profit     float64 `parquet:"name=profit, type=DOUBLE"`
	Reason     string  `parquet:"name=reason, type=BYTE_ARRAY, convertedtype=UTF8"`
	Outcome    string  `parquet:"name=outcome, type=BYTE_ARRAY, convertedtype=UTF8"`
	Timestamp  int64   `parquet:"name=timestamp, type=INT64"`
}

// memoryFileWriter implements the ParquetFile interface for in-memory writing
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{buffer: &bytes.Buffer{}}
}

func (mfw *memoryFileWriter) Create(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Open(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Seek(offset int64, whence int) (int64, error) {
	// Write-only usage, seek is never exercised
	return int64(mfw.buffer.Len()), nil
}

func (mfw *memoryFileWriter) Read(b []byte) (int, error) {
	return mfw.buffer.Read(b)
}

func (mfw *memoryFileWriter) Write(b []byte) (int, error) {
	return mfw.buffer.Write(b)
}

func (mfw *memoryFileWriter) Close() error {
	return nil
}

func (mfw *memoryFileWriter) Bytes() []byte {
	return mfw.buffer.Bytes()
}

// AuditWriter buffers purchase-attempt records and flushes them to S3 as
// parquet files on an interval and at shutdown. Enqueue never blocks the
// execution path: when the intake channel is full the record is dropped.
type AuditWriter struct {
	config   *appconfig.Config
	s3Client *s3.Client
	intake   chan models.SnipeRecord

	ctx     context.Context
	wg      *sync.WaitGroup
	mu      sync.Mutex
	running bool
	buffer  []models.SnipeRecord

	flushTicker *time.Ticker
	log         *logger.Log
}

// NewAuditWriter constructs the audit writer and its S3 client.
func NewAuditWriter(cfg *appconfig.Config) (*AuditWriter, error) {
	log := logger.GetLogger()

	ctx := context.Background()

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Storage.S3.Region),
	}
	if cfg.Storage.S3.AccessKeyID != "" && cfg.Storage.S3.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.Storage.S3.AccessKeyID,
				cfg.Storage.S3.SecretAccessKey,
				"",
			),
		))
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		log.WithComponent("audit_writer").WithError(err).Warn("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	creds, err := awsConfig.Credentials.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		return nil, fmt.Errorf("aws credentials not found")
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Storage.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.S3.Endpoint)
		}
		o.UsePathStyle = cfg.Storage.S3.PathStyle
	})

	buffer := cfg.Storage.Audit.Buffer
	if buffer <= 0 {
		buffer = 256
	}

	w := &AuditWriter{
		config:   cfg,
		s3Client: s3Client,
		intake:   make(chan models.SnipeRecord, buffer),
		wg:       &sync.WaitGroup{},
		log:      log,
	}

	log.WithComponent("audit_writer").WithFields(logger.Fields{
		"bucket":     cfg.Storage.S3.Bucket,
		"region":     cfg.Storage.S3.Region,
		"endpoint":   cfg.Storage.S3.Endpoint,
		"path_style": cfg.Storage.S3.PathStyle,
	}).Info("audit writer initialized")

	return w, nil
}

// Enqueue hands a record to the writer without blocking. Returns false when
// the intake buffer is full and the record was dropped.
func (w *AuditWriter) Enqueue(record models.SnipeRecord) bool {
	select {
	case w.intake <- record:
		return true
	default:
		return false
	}
}

// Start launches the consume and flush workers.
func (w *AuditWriter) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("audit writer already running")
	}
	w.running = true
	w.ctx = ctx
	w.mu.Unlock()

	interval := w.config.Storage.Audit.FlushInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	w.flushTicker = time.NewTicker(interval)

	w.wg.Add(2)
	go w.consumeWorker()
	go w.flushWorker()

	w.log.WithComponent("audit_writer").WithFields(logger.Fields{
		"flush_interval": interval.String(),
	}).Info("audit writer started")
	return nil
}

// Stop waits for the workers to drain and flush.
func (w *AuditWriter) Stop() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	w.log.WithComponent("audit_writer").Info("stopping audit writer")
	w.wg.Wait()
	w.log.WithComponent("audit_writer").Info("audit writer stopped")
}

func (w *AuditWriter) consumeWorker() {
	defer w.wg.Done()

	log := w.log.WithComponent("audit_writer").WithFields(logger.Fields{"worker": "consume"})
	log.Info("starting consume worker")

	for {
		select {
		case <-w.ctx.Done():
			// drain whatever is still queued before the final flush
			for {
				select {
				case record := <-w.intake:
					w.append(record)
				default:
					log.Info("consume worker stopped due to context cancellation")
					return
				}
			}
		case record := <-w.intake:
			w.append(record)
		}
	}
}

func (w *AuditWriter) append(record models.SnipeRecord) {
	w.mu.Lock()
	w.buffer = append(w.buffer, record)
	w.mu.Unlock()
}

func (w *AuditWriter) flushWorker() {
	defer w.wg.Done()

	log := w.log.WithComponent("audit_writer").WithFields(logger.Fields{"worker": "flush"})
	log.Info("starting flush worker")

	for {
		select {
		case <-w.ctx.Done():
			w.flush("shutdown")
			log.Info("flush worker stopped due to context cancellation")
			return
		case <-w.flushTicker.C:
			w.flush("interval")
		}
	}
}

func (w *AuditWriter) flush(reason string) {
	w.mu.Lock()
	records := w.buffer
	w.buffer = nil
	w.mu.Unlock()

	if len(records) == 0 {
		return
	}

	log := w.log.WithComponent("audit_writer").WithFields(logger.Fields{
		"record_count": len(records),
		"reason":       reason,
	})
	log.Info("flushing audit records")

	s3Key := w.generateS3Key(time.Now().UTC())
	log = log.WithFields(logger.Fields{"s3_key": s3Key})

	parquetData, err := w.createParquetFile(records)
	if err != nil {
		log.WithError(err).Error("failed to create parquet file")
		return
	}

	if err := w.uploadToS3(s3Key, parquetData); err != nil {
		log.WithError(err).
			WithEnv("S3_BUCKET").
			WithFields(logger.Fields{"bucket": w.config.Storage.S3.Bucket}).
			Error("failed to upload to S3")
		return
	}

	logger.IncrementAuditWrite()
	log.WithFields(logger.Fields{"file_size": len(parquetData)}).Info("audit records uploaded")
}

func (w *AuditWriter) generateS3Key(now time.Time) string {
	prefix := w.config.Storage.Audit.Prefix
	if prefix == "" {
		prefix = "snipes"
	}
	key := filepath.Join(
		prefix,
		fmt.Sprintf("date=%s", now.Format("2006-01-02")),
		fmt.Sprintf("hour=%02d", now.Hour()),
		fmt.Sprintf("snipes_%s_%s.parquet", now.Format("20060102150405"), uuid.New().String()[:8]),
	)
	return filepath.ToSlash(key)
}

func (w *AuditWriter) createParquetFile(records []models.SnipeRecord) ([]byte, error) {
	fw := newMemoryFileWriter()

	pw, err := writer.NewParquetWriter(fw, new(ParquetRecord), 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}

	switch w.config.Storage.Audit.Compression {
	case "snappy":
		pw.CompressionType = parquet.CompressionCodec_SNAPPY
	case "gzip":
		pw.CompressionType = parquet.CompressionCodec_GZIP
	default:
		pw.CompressionType = parquet.CompressionCodec_UNCOMPRESSED
	}

	for _, r := range records {
		record := ParquetRecord{
			AttemptID:  r.AttemptID,
			ListingID:  r.ListingID,
			Collection: r.Collection,
			Model:      r.Model,
			Price:      r.Price,
			Profit:     r.Profit,
			Reason:     r.Reason,
			Outcome:    r.Outcome,
			Timestamp:  r.Timestamp.UnixMilli(),
		}
		if err := pw.Write(record); err != nil {
			pw.WriteStop()
			return nil, fmt.Errorf("failed to write parquet record: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet writing: %w", err)
	}

	return fw.Bytes(), nil
}

func (w *AuditWriter) uploadToS3(key string, data []byte) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(w.config.Storage.S3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"content-type":       "parquet",
			"compression":        w.config.Storage.Audit.Compression,
			"giftsniper-version": w.config.Sniper.Version,
		},
	}

	ctx := context.WithoutCancel(w.ctx)
	_, err := w.s3Client.PutObject(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to upload to S3 bucket %s: %w", w.config.Storage.S3.Bucket, err)
	}
	return nil
}
