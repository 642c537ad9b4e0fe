package audit

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/pingman/internal/model"
	"github.com/hitoshi/pingman/internal/tablestore"
)

func testRecord() model.AuditRecord {
	return model.AuditRecord{
		Timestamp:      time.Date(2024, 11, 15, 12, 30, 45, 0, time.UTC),
		Username:       "alice",
		CampaignName:   "alice_1700000000",
		NumberOfDay:    30,
		URLsCount:      2,
		ResponseStatus: 200,
		ResponseBody:   `{"Success":true}`,
	}
}

func TestRecord_TableAbsent_CreatesWithHeaderThenAppends(t *testing.T) {
	ctx := context.Background()
	store := tablestore.NewMemory()
	rec := NewRecorder(store, slog.Default())

	if err := rec.Record(ctx, testRecord()); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	header, ok := store.Header("logs")
	if !ok {
		t.Fatal("logs table should have been created")
	}
	want := []string{"timestamp", "username", "campaign_name", "number_of_day", "urls_count", "response_status", "response_body"}
	if len(header) != len(want) {
		t.Fatalf("header = %v, want %v", header, want)
	}
	for i := range want {
		if header[i] != want[i] {
			t.Errorf("header[%d] = %q, want %q", i, header[i], want[i])
		}
	}

	rows, err := store.ReadAll(ctx, "logs")
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}

	row := rows[0]
	if row[0] != "2024-11-15 12:30:45" {
		t.Errorf("timestamp = %q, want %q", row[0], "2024-11-15 12:30:45")
	}
	if row[1] != "alice" || row[2] != "alice_1700000000" {
		t.Errorf("unexpected identity cells: %v", row)
	}
	if row[3] != "30" || row[4] != "2" || row[5] != "200" {
		t.Errorf("unexpected numeric cells: %v", row)
	}
	if row[6] != `{"Success":true}` {
		t.Errorf("response_body = %q", row[6])
	}
}

func TestRecord_SubsequentAppends_DoNotRecreate(t *testing.T) {
	ctx := context.Background()
	store := tablestore.NewMemory()
	rec := NewRecorder(store, slog.Default())

	if err := rec.Record(ctx, testRecord()); err != nil {
		t.Fatalf("first Record failed: %v", err)
	}
	second := testRecord()
	second.CampaignName = "alice_1700000001"
	if err := rec.Record(ctx, second); err != nil {
		t.Fatalf("second Record failed: %v", err)
	}

	rows, err := store.ReadAll(ctx, "logs")
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2 (table must not be recreated)", len(rows))
	}
	if rows[0][2] != "alice_1700000000" || rows[1][2] != "alice_1700000001" {
		t.Errorf("rows out of order: %v", rows)
	}
}

func TestRecord_TruncatesLongResponseBody(t *testing.T) {
	ctx := context.Background()
	store := tablestore.NewMemory()
	rec := NewRecorder(store, slog.Default())

	r := testRecord()
	r.ResponseBody = strings.Repeat("x", maxResponseBodyLen+500)
	if err := rec.Record(ctx, r); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	rows, _ := store.ReadAll(ctx, "logs")
	if got := len(rows[0][6]); got != maxResponseBodyLen {
		t.Errorf("len(response_body) = %d, want %d", got, maxResponseBodyLen)
	}
}

// --- 失敗系はフェイクストアで検証する ---

type failingStore struct {
	appendErr error
	ensureErr error
	appends   int
	ensures   int
}

func (f *failingStore) EnsureTable(_ context.Context, _ string, _ []string) error {
	f.ensures++
	return f.ensureErr
}

func (f *failingStore) AppendRow(_ context.Context, _ string, _ []string) error {
	f.appends++
	return f.appendErr
}

// compile-time interface check
var _ TableAppender = (*failingStore)(nil)

func TestRecord_AppendFails_ReturnsError(t *testing.T) {
	store := &failingStore{appendErr: errors.New("quota exceeded")}
	rec := NewRecorder(store, slog.Default())

	err := rec.Record(context.Background(), testRecord())
	if err == nil {
		t.Fatal("expected error")
	}
	if store.ensures != 0 {
		t.Errorf("EnsureTable calls = %d, want 0 (error was not ErrTableNotFound)", store.ensures)
	}
}

func TestRecord_EnsureFails_ReturnsError(t *testing.T) {
	store := &failingStore{
		appendErr: tablestore.ErrTableNotFound,
		ensureErr: errors.New("permission denied"),
	}
	rec := NewRecorder(store, slog.Default())

	err := rec.Record(context.Background(), testRecord())
	if err == nil {
		t.Fatal("expected error")
	}
	if store.appends != 1 {
		t.Errorf("AppendRow calls = %d, want 1 (no retry after ensure failure)", store.appends)
	}
}
