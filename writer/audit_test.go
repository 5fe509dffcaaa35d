package writer

import (
	"strings"
	"testing"
	"time"

	appconfig "giftsniper/config"
	"giftsniper/logger"
	"giftsniper/models"
)

func testWriter() *AuditWriter {
	return &AuditWriter{
		config: &appconfig.Config{
			Storage: appconfig.StorageConfig{
				Audit: appconfig.AuditConfig{Prefix: "snipes", Compression: "snappy"},
			},
		},
		intake: make(chan models.SnipeRecord, 2),
		log:    logger.GetLogger(),
	}
}

func TestEnqueueNonBlocking(t *testing.T) {
	w := testWriter()

	if !w.Enqueue(models.SnipeRecord{AttemptID: "a"}) {
		t.Fatal("first enqueue should succeed")
	}
	if !w.Enqueue(models.SnipeRecord{AttemptID: "b"}) {
		t.Fatal("second enqueue should succeed")
	}
	if w.Enqueue(models.SnipeRecord{AttemptID: "c"}) {
		t.Error("enqueue into a full buffer must drop, not block")
	}
}

func TestGenerateS3Key(t *testing.T) {
	w := testWriter()
	now := time.Date(2026, 8, 31, 14, 5, 0, 0, time.UTC)

	key := w.generateS3Key(now)
	if !strings.HasPrefix(key, "snipes/date=2026-08-31/hour=14/snipes_20260831140500_") {
		t.Errorf("key = %q", key)
	}
	if !strings.HasSuffix(key, ".parquet") {
		t.Errorf("key = %q, want .parquet suffix", key)
	}
}

func TestCreateParquetFile(t *testing.T) {
	w := testWriter()
	records := []models.SnipeRecord{
		{
			AttemptID:  "attempt-1",
			ListingID:  "nft-1",
			Collection: "c1",
			Model:      "Golden",
			Price:      10.5,
			Profit:     1.2,
			Reason:     "profit_1.20",
			Outcome:    "success",
			Timestamp:  time.Now().UTC(),
		},
		{
			AttemptID: "attempt-2",
			ListingID: "nft-2",
			Outcome:   "failed",
			Timestamp: time.Now().UTC(),
		},
	}

	data, err := w.createParquetFile(records)
	if err != nil {
		t.Fatalf("createParquetFile: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("parquet output is empty")
	}
	// PAR1 magic bytes frame every parquet file
	if string(data[:4]) != "PAR1" {
		t.Errorf("file header = %q, want PAR1", data[:4])
	}
}
