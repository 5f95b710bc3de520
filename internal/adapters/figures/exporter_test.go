package figures

import (
	"context"
	"io"
	"testing"
	"time"

	"fieldplot/internal/core"
	blobmemory "fieldplot/internal/infra/blob/memory"
	"fieldplot/internal/infra/persistence/memory"
	"fieldplot/pkg/plotapi"
	"fieldplot/plugins/waveform"
)

func testCatalog(t *testing.T) *core.Service {
	t.Helper()
	svc, err := core.NewService(memory.NewStore())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	h, err := waveform.GenerateHierarchy("demo", 2, 2, 40)
	if err != nil {
		t.Fatalf("generate hierarchy: %v", err)
	}
	if err := svc.ReplaceHierarchy(h); err != nil {
		t.Fatalf("replace hierarchy: %v", err)
	}
	if _, err := svc.InstallPlugin(waveform.New()); err != nil {
		t.Fatalf("install plugin: %v", err)
	}
	return svc
}

func waitForExport(t *testing.T, worker *Worker, id string) ExportRecord {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		current, ok := worker.GetExport(id)
		if !ok {
			t.Fatalf("export %s missing", id)
		}
		if current.Status == ExportStatusSucceeded {
			return current
		}
		if current.Status == ExportStatusFailed {
			t.Fatalf("export failed: %s", current.Error)
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for export %s, status %s", id, current.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWorkerProcessesExport(t *testing.T) {
	svc := testCatalog(t)
	store := blobmemory.New()
	audit := &MemoryAuditLog{}
	worker := NewWorker(svc, store, audit)
	worker.Start()
	t.Cleanup(func() { _ = worker.Stop(context.Background()) })

	ctx := context.Background()
	record, err := worker.EnqueueExport(ctx, ExportInput{
		TemplateSlug: "waveform/specimen-series@1.0.0",
		Parameters:   map[string]any{"parameter": "sine"},
		Formats:      []plotapi.Format{plotapi.FormatPNG, plotapi.FormatCSV},
		Scope:        plotapi.Scope{Site: "site-1"},
		RequestedBy:  "tester",
	})
	if err != nil {
		t.Fatalf("enqueue export: %v", err)
	}
	if record.Status != ExportStatusQueued {
		t.Fatalf("got status %s, want queued", record.Status)
	}
	if record.StyleName != DefaultStyleName {
		t.Fatalf("got style %s, want default", record.StyleName)
	}

	done := waitForExport(t, worker, record.ID)
	if len(done.Artifacts) != 2 {
		t.Fatalf("got %d artifacts, want 2", len(done.Artifacts))
	}
	if done.CompletedAt == nil {
		t.Fatalf("completed timestamp missing")
	}
	for _, artifact := range done.Artifacts {
		info, reader, err := store.Get(ctx, artifact.Key)
		if err != nil {
			t.Fatalf("stored figure missing: %v", err)
		}
		payload, err := io.ReadAll(reader)
		_ = reader.Close()
		if err != nil {
			t.Fatalf("read figure: %v", err)
		}
		if int64(len(payload)) != artifact.SizeBytes {
			t.Fatalf("payload size %d, artifact says %d", len(payload), artifact.SizeBytes)
		}
		if info.ContentType != artifact.ContentType {
			t.Fatalf("content type %s, artifact says %s", info.ContentType, artifact.ContentType)
		}
		if artifact.URL == "" {
			t.Fatalf("artifact URL missing")
		}
	}

	entries := audit.Entries()
	if len(entries) == 0 {
		t.Fatalf("expected audit entries")
	}
	last := entries[len(entries)-1]
	if last.Status != ExportStatusSucceeded {
		t.Fatalf("final audit status %s, want succeeded", last.Status)
	}
	if last.Action != "figure_export" {
		t.Fatalf("audit action %s, want figure_export", last.Action)
	}
}

func TestWorkerDefaultsToPNG(t *testing.T) {
	svc := testCatalog(t)
	worker := NewWorker(svc, blobmemory.New(), nil)
	worker.Start()
	t.Cleanup(func() { _ = worker.Stop(context.Background()) })

	record, err := worker.EnqueueExport(context.Background(), ExportInput{
		TemplateSlug: "waveform/site-summary@1.0.0",
		Scope:        plotapi.Scope{Site: "site-1"},
	})
	if err != nil {
		t.Fatalf("enqueue export: %v", err)
	}
	if len(record.Formats) != 1 || record.Formats[0] != plotapi.FormatPNG {
		t.Fatalf("got formats %v, want [png]", record.Formats)
	}
	done := waitForExport(t, worker, record.ID)
	if done.Artifacts[0].ContentType != "image/png" {
		t.Fatalf("got content type %s, want image/png", done.Artifacts[0].ContentType)
	}
}

func TestWorkerRejectsUnknownTemplate(t *testing.T) {
	svc := testCatalog(t)
	worker := NewWorker(svc, blobmemory.New(), nil)
	if _, err := worker.EnqueueExport(context.Background(), ExportInput{TemplateSlug: "waveform/missing@1.0.0"}); err == nil {
		t.Fatalf("expected error for unknown template")
	}
}

func TestWorkerRejectsUnknownStyle(t *testing.T) {
	svc := testCatalog(t)
	worker := NewWorker(svc, blobmemory.New(), nil)
	_, err := worker.EnqueueExport(context.Background(), ExportInput{
		TemplateSlug: "waveform/specimen-series@1.0.0",
		StyleName:    "neon",
	})
	if err == nil {
		t.Fatalf("expected error for unknown style")
	}
}

func TestWorkerRejectsUnsupportedFormat(t *testing.T) {
	svc := testCatalog(t)
	worker := NewWorker(svc, blobmemory.New(), nil)
	_, err := worker.EnqueueExport(context.Background(), ExportInput{
		TemplateSlug: "waveform/specimen-series@1.0.0",
		Formats:      []plotapi.Format{plotapi.Format("gif")},
	})
	if err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestWorkerRecordsFailure(t *testing.T) {
	svc := testCatalog(t)
	audit := &MemoryAuditLog{}
	worker := NewWorker(svc, blobmemory.New(), audit)
	worker.Start()
	t.Cleanup(func() { _ = worker.Stop(context.Background()) })

	// Missing required parameter fails during the run, not at enqueue.
	record, err := worker.EnqueueExport(context.Background(), ExportInput{
		TemplateSlug: "waveform/specimen-series@1.0.0",
		Scope:        plotapi.Scope{Site: "site-1"},
	})
	if err != nil {
		t.Fatalf("enqueue export: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		current, _ := worker.GetExport(record.ID)
		if current.Status == ExportStatusFailed {
			if current.Error == "" {
				t.Fatalf("failed record carries no error message")
			}
			if current.CompletedAt == nil {
				t.Fatalf("failed record missing completion timestamp")
			}
			break
		}
		if current.Status == ExportStatusSucceeded {
			t.Fatalf("export unexpectedly succeeded")
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for failure")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWorkerStopHonorsContext(t *testing.T) {
	svc := testCatalog(t)
	worker := NewWorker(svc, blobmemory.New(), nil)
	worker.Start()
	if err := worker.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestWorkerRejectsWhenQueueFull(t *testing.T) {
	svc := testCatalog(t)
	worker := NewWorker(svc, blobmemory.New(), nil, WithQueueDepth(1))
	// Not started, so the single queue slot never drains.
	input := ExportInput{
		TemplateSlug: "waveform/specimen-series@1.0.0",
		Formats:      []plotapi.Format{plotapi.FormatJSON},
	}
	if _, err := worker.EnqueueExport(context.Background(), input); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if _, err := worker.EnqueueExport(context.Background(), input); err == nil {
		t.Fatalf("expected queue full error")
	}
}
