package audit

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/careerwatch/internal/crawler"
	"github.com/JakeFAU/careerwatch/internal/hash/sha256"
	"github.com/JakeFAU/careerwatch/internal/storage/memory"
)

func sampleEntry() crawler.AuditEntry {
	return crawler.AuditEntry{
		DeliveredAt: time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC),
		PassID:      "pass-1",
		Posting: crawler.JobPosting{
			Company:    "Acme, Inc.",
			Title:      "Backend Engineer",
			PostedDate: "01/03/2024",
			Location:   "Bengaluru",
			ApplyLink:  "https://acme.example/careers/123-engineer",
		},
	}
}

func TestCSVLogWritesHeaderOnce(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "jobs_log.csv")
	log, err := NewCSVLog(path)
	require.NoError(t, err)

	first := sampleEntry()
	second := sampleEntry()
	second.Posting.PostedDate = ""
	second.Posting.ApplyLink = "https://acme.example/careers/456"

	require.NoError(t, log.Append(context.Background(), first))
	require.NoError(t, log.Append(context.Background(), second))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Equal(t, [][]string{
		Header,
		{"01/03/2024", "Acme, Inc.", "Backend Engineer", "Bengaluru", "https://acme.example/careers/123-engineer"},
		{"Not specified", "Acme, Inc.", "Backend Engineer", "Bengaluru", "https://acme.example/careers/456"},
	}, rows)
}

func TestNewCSVLogRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := NewCSVLog("")
	require.Error(t, err)
}

func TestBlobLogAppend(t *testing.T) {
	t.Parallel()

	store := memory.NewBlobStore()
	log, err := NewBlobLog(store, sha256.New(), "/audit/")
	require.NoError(t, err)

	entry := sampleEntry()
	require.NoError(t, log.Append(context.Background(), entry))

	name, err := log.ObjectPath(entry)
	require.NoError(t, err)
	sum, err := sha256.New().Hash([]byte(entry.Posting.ApplyLink))
	require.NoError(t, err)
	require.Equal(t, "audit/2024-03-02/"+sum+".json", name)

	data, ok := store.Object(name)
	require.True(t, ok)
	var got crawler.AuditEntry
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, entry, got)
}

func TestNewBlobLogValidation(t *testing.T) {
	t.Parallel()

	_, err := NewBlobLog(nil, sha256.New(), "")
	require.Error(t, err)
	_, err = NewBlobLog(memory.NewBlobStore(), nil, "")
	require.Error(t, err)
}
