package ingest

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/affiliate-monitor/internal/pipeline"
	"github.com/ignite/affiliate-monitor/internal/source"
)

// Config holds the S3 polling settings.
type Config struct {
	Bucket     string
	Region     string
	Prefix     string
	AWSProfile string
	Interval   time.Duration
}

// Batch is the parsed content of one export file.
type Batch struct {
	Key      string
	Platform source.Platform
	Kind     Kind
	Rows     []source.RawRow
}

// Handler receives the batches of one polling cycle. Called only when the
// cycle produced at least one batch.
type Handler func(batches []Batch)

// Ingestor polls an S3 bucket for marketplace and ad-platform CSV exports,
// classifies each file, parses it, and hands the batches to the handler.
// Processed files move under processed/ so a cycle never re-reads them.
type Ingestor struct {
	s3Client   *s3.Client
	bucket     string
	prefix     string
	classifier *Classifier
	handler    Handler
	interval   time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
	lastRunAt  time.Time
	healthy    bool
	running    int32
}

func NewIngestor(cfg Config, handler Handler) (*Ingestor, error) {
	ctx := context.Background()

	var awsCfg aws.Config
	var err error
	if cfg.AWSProfile != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithSharedConfigProfile(cfg.AWSProfile),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	return &Ingestor{
		s3Client:   s3.NewFromConfig(awsCfg),
		bucket:     cfg.Bucket,
		prefix:     cfg.Prefix,
		classifier: NewClassifier(),
		handler:    handler,
		interval:   interval,
		healthy:    true,
	}, nil
}

func (in *Ingestor) Start() {
	in.ctx, in.cancel = context.WithCancel(context.Background())
	go func() {
		in.runOnce()
		ticker := time.NewTicker(in.interval)
		defer ticker.Stop()
		for {
			select {
			case <-in.ctx.Done():
				return
			case <-ticker.C:
				in.runOnce()
			}
		}
	}()
}

func (in *Ingestor) Stop() {
	if in.cancel != nil {
		in.cancel()
	}
}

func (in *Ingestor) IsHealthy() bool      { return in.healthy }
func (in *Ingestor) LastRunAt() time.Time { return in.lastRunAt }
func (in *Ingestor) IsRunning() bool      { return atomic.LoadInt32(&in.running) == 1 }

// ManualTrigger runs one cycle outside the ticker.
func (in *Ingestor) ManualTrigger() {
	go in.runOnce()
}

// runOnce executes one cycle: list new files, parse them, hand off batches.
func (in *Ingestor) runOnce() {
	if !atomic.CompareAndSwapInt32(&in.running, 0, 1) {
		return
	}
	defer atomic.StoreInt32(&in.running, 0)

	ctx := in.ctx
	in.lastRunAt = time.Now()
	in.healthy = true

	keys := in.discoverFiles(ctx)
	if len(keys) == 0 {
		return
	}
	log.Printf("[ingest] processing batch of %d files", len(keys))

	var mu sync.Mutex
	var batches []Batch

	sem := make(chan struct{}, 4)
	var wg sync.WaitGroup
	for _, key := range keys {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(k string) {
			defer wg.Done()
			defer func() { <-sem }()
			batch, err := in.processFile(ctx, k)
			if err != nil {
				log.Printf("[ingest] process file %s error: %v", k, err)
				return
			}
			if batch != nil {
				mu.Lock()
				batches = append(batches, *batch)
				mu.Unlock()
			}
		}(key)
	}
	wg.Wait()

	if len(batches) > 0 && in.handler != nil {
		in.handler(batches)
	}
}

// discoverFiles lists unprocessed CSV files in the bucket.
func (in *Ingestor) discoverFiles(ctx context.Context) []string {
	paginator := s3.NewListObjectsV2Paginator(in.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(in.bucket),
		Prefix: aws.String(in.prefix),
	})

	var keys []string
	for paginator.HasMorePages() {
		if ctx.Err() != nil {
			return keys
		}
		page, err := paginator.NextPage(ctx)
		if err != nil {
			log.Printf("[ingest] list S3 objects error: %v", err)
			in.healthy = false
			return keys
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)

			if obj.Size == nil || *obj.Size == 0 {
				continue
			}
			if strings.Contains(key, "processed/") || strings.Contains(key, "failed/") {
				continue
			}
			if !strings.HasSuffix(strings.ToLower(key), ".csv") {
				continue
			}
			keys = append(keys, key)
		}
	}
	return keys
}

// processFile downloads, classifies and parses one export file, then moves
// it under processed/ (or failed/ when it cannot be classified).
func (in *Ingestor) processFile(ctx context.Context, key string) (*Batch, error) {
	getOutput, err := in.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(in.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get S3 object: %w", err)
	}
	defer getOutput.Body.Close()

	header, rows, err := ReadCSV(bufio.NewReaderSize(getOutput.Body, 256*1024))
	if err != nil {
		in.moveFile(ctx, key, "failed/")
		return nil, fmt.Errorf("parse CSV: %w", err)
	}
	if len(rows) == 0 {
		log.Printf("[ingest] empty file %s, skipping", key)
		in.moveFile(ctx, key, "processed/")
		return nil, nil
	}

	platform, kind := in.classifier.Classify(key, header)
	if kind == KindUnknown {
		log.Printf("[ingest] skipping %s: cannot classify from filename or headers", key)
		in.moveFile(ctx, key, "failed/")
		return nil, nil
	}

	log.Printf("[ingest] %s: %d rows classified as %s/%s", key, len(rows), platform, kind)
	in.moveFile(ctx, key, "processed/")

	return &Batch{Key: key, Platform: platform, Kind: kind, Rows: rows}, nil
}

// moveFile copies the object under the given prefix and deletes the
// original. A failed copy leaves the original in place for the next cycle.
func (in *Ingestor) moveFile(ctx context.Context, key, prefix string) {
	newKey := prefix + time.Now().UTC().Format("2006-01-02") + "/" + key

	_, err := in.s3Client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(in.bucket),
		CopySource: aws.String(in.bucket + "/" + key),
		Key:        aws.String(newKey),
	})
	if err != nil {
		log.Printf("[ingest] copy to %s failed: %v", newKey, err)
		return
	}
	if _, err := in.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(in.bucket),
		Key:    aws.String(key),
	}); err != nil {
		log.Printf("[ingest] delete original %s failed: %v", key, err)
	}
}

// ToPipelineInput converts one cycle's batches into a pipeline snapshot.
// File-sourced rows all carry the file_import origin; API origin rows come
// from live fetch collaborators, not from here.
func ToPipelineInput(batches []Batch) pipeline.Input {
	var input pipeline.Input
	for _, b := range batches {
		set := pipeline.RowSet{Platform: b.Platform, Origin: source.OriginFileImport, Rows: b.Rows}
		switch b.Kind {
		case KindAdSpend:
			input.AdSpendRows = append(input.AdSpendRows, set)
		case KindOrders:
			input.OrderRows = append(input.OrderRows, set)
		}
	}
	return input
}
