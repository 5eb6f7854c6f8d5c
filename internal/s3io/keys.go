package s3io

import (
	"fmt"
	"path"
	"time"
)

// KeyPrefix is where receipt photos live in the bucket.
const KeyPrefix = "receipts"

// BuildKey constructs the S3 key for a receipt uploaded at t.
func BuildKey(t time.Time, filename string) string {
	return fmt.Sprintf("%s/%s/%s", KeyPrefix, t.Format("2006/01/02"), path.Base(filename))
}
