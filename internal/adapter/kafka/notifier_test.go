package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/station-climate-etl/internal/ingest"
)

func TestSerializeSummary(t *testing.T) {
	now := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	summary := ingest.Summary{
		FilesProcessed:   2,
		Inserted:         730,
		SkippedDuplicate: 365,
		SkippedInvalid:   3,
		Stations:         []string{"USC00110072", "USC00257715"},
	}

	msg, err := serializeSummary(RunIngest, summary, now)
	require.NoError(t, err)

	assert.Equal(t, []byte(RunIngest), msg.Key)
	assert.Contains(t, string(msg.Value), `"inserted":730`)
	assert.Contains(t, string(msg.Value), `"skipped_duplicate":365`)
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "run_kind", msg.Headers[0].Key)
	assert.Equal(t, []byte(RunIngest), msg.Headers[0].Value)
	assert.Equal(t, "published_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestSerializeSummary_UnserializableValue(t *testing.T) {
	_, err := serializeSummary(RunStats, func() {}, time.Now())
	assert.Error(t, err)
}
