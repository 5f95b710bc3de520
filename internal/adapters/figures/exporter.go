// Package figures renders chart results into figure files and exports them
// asynchronously to blob storage.
package figures

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"fieldplot/internal/core"
	blobcore "fieldplot/internal/infra/blob/core"
	"fieldplot/pkg/domain"
	"fieldplot/pkg/plotapi"

	"github.com/jonboulle/clockwork"
)

// ExportStatus describes the lifecycle stage of an export request.
type ExportStatus string

const (
	ExportStatusQueued    ExportStatus = "queued"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusSucceeded ExportStatus = "succeeded"
	ExportStatusFailed    ExportStatus = "failed"
)

// FigureArtifact captures a stored figure file.
type FigureArtifact struct {
	Key         string         `json:"key"`
	Format      plotapi.Format `json:"format"`
	ContentType string         `json:"content_type"`
	SizeBytes   int64          `json:"size_bytes"`
	ETag        string         `json:"etag,omitempty"`
	URL         string         `json:"url,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ExportRecord tracks an export request and resulting figure artifacts.
type ExportRecord struct {
	ID          string                          `json:"id"`
	Template    plotapi.TemplateDescriptor      `json:"template"`
	Scope       plotapi.Scope                   `json:"scope"`
	Parameters  map[string]any                  `json:"parameters"`
	Formats     []plotapi.Format                `json:"formats"`
	StyleName   string                          `json:"style_name"`
	Status      ExportStatus                    `json:"status"`
	Error       string                          `json:"error,omitempty"`
	Artifacts   []FigureArtifact                `json:"artifacts,omitempty"`
	RequestedBy string                          `json:"requested_by,omitempty"`
	CreatedAt   time.Time                       `json:"created_at"`
	UpdatedAt   time.Time                       `json:"updated_at"`
	CompletedAt *time.Time                      `json:"completed_at,omitempty"`
}

// ExportInput represents an enqueue request for the worker.
type ExportInput struct {
	TemplateSlug string
	Parameters   map[string]any
	Formats      []plotapi.Format
	Scope        plotapi.Scope
	StyleName    string
	RequestedBy  string
}

// ExportScheduler queues figure export requests and exposes status.
type ExportScheduler interface {
	EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error)
	GetExport(id string) (ExportRecord, bool)
}

// Catalog resolves chart templates and styles. *core.Service satisfies it.
type Catalog interface {
	ResolveChartTemplate(slug string) (core.ChartTemplate, bool)
	Style(name string) (domain.Style, error)
}

// AuditLogger records export audit entries.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry captures audit trail metadata for figure exports.
type AuditEntry struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	Actor      string         `json:"actor,omitempty"`
	Template   string         `json:"template"`
	Status     ExportStatus   `json:"status"`
	Scope      plotapi.Scope  `json:"scope"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// DefaultStyleName is used when an export request does not name a style.
const DefaultStyleName = "classic"

// defaultQueueDepth bounds pending exports when no override is configured.
const defaultQueueDepth = 32

// ExportMetrics counts finished exports by final status.
type ExportMetrics interface {
	ObserveExport(status string)
}

// Worker executes figure exports asynchronously.
type Worker struct {
	catalog Catalog
	store   blobcore.Store
	audit   AuditLogger
	clock   clockwork.Clock
	metrics ExportMetrics

	queue chan exportTask
	mu    sync.RWMutex
	jobs  map[string]*ExportRecord

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type exportTask struct {
	id    string
	input ExportInput
}

// WorkerOption customizes worker construction.
type WorkerOption func(*Worker)

// WithClock substitutes the worker clock, used by tests.
func WithClock(clock clockwork.Clock) WorkerOption {
	return func(w *Worker) { w.clock = clock }
}

// WithMetrics attaches an export counter.
func WithMetrics(metrics ExportMetrics) WorkerOption {
	return func(w *Worker) { w.metrics = metrics }
}

// WithQueueDepth overrides the pending export queue capacity. Non-positive
// values keep the default.
func WithQueueDepth(depth int) WorkerOption {
	return func(w *Worker) {
		if depth > 0 {
			w.queue = make(chan exportTask, depth)
		}
	}
}

// NewWorker constructs a figure export worker.
func NewWorker(catalog Catalog, store blobcore.Store, audit AuditLogger, opts ...WorkerOption) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		catalog: catalog,
		store:   store,
		audit:   audit,
		clock:   clockwork.NewRealClock(),
		queue:   make(chan exportTask, defaultQueueDepth),
		jobs:    make(map[string]*ExportRecord),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for completion.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case task := <-w.queue:
			w.process(task)
		}
	}
}

// EnqueueExport schedules a figure export job and returns the queued record.
func (w *Worker) EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error) {
	if w.catalog == nil {
		return ExportRecord{}, fmt.Errorf("figure catalog not configured")
	}

	slug := strings.TrimSpace(input.TemplateSlug)
	if slug == "" {
		return ExportRecord{}, fmt.Errorf("template slug required")
	}
	template, ok := w.catalog.ResolveChartTemplate(slug)
	if !ok {
		return ExportRecord{}, domain.NotFoundError{Kind: domain.KindTemplate, Name: slug}
	}

	styleName := input.StyleName
	if styleName == "" {
		styleName = DefaultStyleName
	}
	if _, err := w.catalog.Style(styleName); err != nil {
		return ExportRecord{}, err
	}

	formats := input.Formats
	if len(formats) == 0 {
		formats = []plotapi.Format{plotapi.FormatPNG}
	}
	uniqFormats := make([]plotapi.Format, 0, len(formats))
	seen := make(map[plotapi.Format]struct{})
	for _, format := range formats {
		if _, duplicate := seen[format]; duplicate {
			continue
		}
		if !template.SupportsFormat(format) {
			return ExportRecord{}, fmt.Errorf("format %s not supported by template", format)
		}
		uniqFormats = append(uniqFormats, format)
		seen[format] = struct{}{}
	}

	id := newID()
	now := w.clock.Now().UTC()
	record := ExportRecord{
		ID:          id,
		Template:    template.Descriptor(),
		Scope:       input.Scope,
		Parameters:  cloneMap(input.Parameters),
		Formats:     uniqFormats,
		StyleName:   styleName,
		Status:      ExportStatusQueued,
		RequestedBy: input.RequestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.jobs[id] = &record
	queuedSnapshot := record.copy()
	w.mu.Unlock()

	if w.audit != nil {
		w.audit.Record(ctx, AuditEntry{
			ID:         newID(),
			Action:     "figure_export",
			Actor:      input.RequestedBy,
			Template:   slug,
			Status:     ExportStatusQueued,
			Scope:      input.Scope,
			OccurredAt: now,
		})
	}

	select {
	case w.queue <- exportTask{id: id, input: input}:
	default:
		return ExportRecord{}, fmt.Errorf("export queue full")
	}

	return queuedSnapshot, nil
}

// GetExport returns a snapshot of the export record.
func (w *Worker) GetExport(id string) (ExportRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return ExportRecord{}, false
	}
	return record.copy(), true
}

func (w *Worker) process(task exportTask) {
	w.mu.RLock()
	record, ok := w.jobs[task.id]
	w.mu.RUnlock()
	if !ok {
		return
	}

	template, found := w.catalog.ResolveChartTemplate(task.input.TemplateSlug)
	if !found {
		w.fail(task.id, fmt.Sprintf("template %s missing", task.input.TemplateSlug))
		return
	}

	style, err := w.catalog.Style(record.StyleName)
	if err != nil {
		w.fail(task.id, fmt.Sprintf("resolve style: %v", err))
		return
	}

	w.updateStatus(task.id, ExportStatusRunning, "")

	result, paramErrs, err := template.Run(w.ctx, task.input.Parameters, task.input.Scope)
	if err != nil {
		w.fail(task.id, fmt.Sprintf("chart run failed: %v", err))
		return
	}
	if len(paramErrs) > 0 {
		w.fail(task.id, fmt.Sprintf("parameter validation failed: %v", paramErrs))
		return
	}

	artifacts := make([]FigureArtifact, 0, len(record.Formats))
	for _, format := range record.Formats {
		payload, err := RenderFigure(format, style, result)
		if err != nil {
			w.fail(task.id, err.Error())
			return
		}
		artifact := FigureArtifact{
			Key:         fmt.Sprintf("%s/%s.%s", task.id, record.Template.Key, format),
			Format:      format,
			ContentType: format.ContentType(),
			SizeBytes:   int64(len(payload)),
			CreatedAt:   w.clock.Now().UTC(),
		}
		if w.store != nil {
			info, err := w.store.Put(w.ctx, artifact.Key, bytes.NewReader(payload), blobcore.PutOptions{
				ContentType: artifact.ContentType,
				Metadata: map[string]string{
					"template": record.Template.Slug,
					"style":    record.StyleName,
				},
			})
			if err != nil {
				w.fail(task.id, fmt.Sprintf("store figure failed: %v", err))
				return
			}
			artifact.ETag = info.ETag
			artifact.URL = info.URL
			if artifact.URL == "" {
				if url, err := w.store.PresignURL(w.ctx, artifact.Key, blobcore.SignedURLOptions{Method: "GET"}); err == nil {
					artifact.URL = url
				}
			}
		}
		artifacts = append(artifacts, artifact)
	}

	w.complete(task.id, artifacts)
}

func (w *Worker) updateStatus(id string, status ExportStatus, message string) {
	now := w.clock.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = status
		record.Error = message
		record.UpdatedAt = now
	}
	w.mu.Unlock()
	w.auditStatus(id, status, nil)
}

func (w *Worker) complete(id string, artifacts []FigureArtifact) {
	now := w.clock.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = ExportStatusSucceeded
		record.Error = ""
		record.Artifacts = artifacts
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	if w.metrics != nil {
		w.metrics.ObserveExport(string(ExportStatusSucceeded))
	}
	w.auditStatus(id, ExportStatusSucceeded, map[string]any{"artifacts": len(artifacts)})
}

func (w *Worker) fail(id, reason string) {
	now := w.clock.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = ExportStatusFailed
		record.Error = reason
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	if w.metrics != nil {
		w.metrics.ObserveExport(string(ExportStatusFailed))
	}
	w.auditStatus(id, ExportStatusFailed, map[string]any{"error": reason})
}

func (w *Worker) auditStatus(id string, status ExportStatus, metadata map[string]any) {
	if w.audit == nil {
		return
	}
	w.mu.RLock()
	var actor, template string
	var scope plotapi.Scope
	if record, ok := w.jobs[id]; ok {
		actor = record.RequestedBy
		template = record.Template.Slug
		scope = record.Scope
	}
	w.mu.RUnlock()
	w.audit.Record(w.ctx, AuditEntry{
		ID:         newID(),
		Action:     "figure_export",
		Actor:      actor,
		Template:   template,
		Status:     status,
		Scope:      scope,
		Metadata:   metadata,
		OccurredAt: w.clock.Now().UTC(),
	})
}

func (r ExportRecord) copy() ExportRecord {
	dup := r
	dup.Parameters = cloneMap(r.Parameters)
	dup.Formats = append([]plotapi.Format(nil), r.Formats...)
	if len(r.Artifacts) > 0 {
		dup.Artifacts = append([]FigureArtifact(nil), r.Artifacts...)
	}
	return dup
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", b[:])
}

// MemoryAuditLog captures audit entries in-memory for assertions.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// Record stores an audit entry.
func (l *MemoryAuditLog) Record(ctx context.Context, entry AuditEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Entries returns a defensive copy of recorded audit entries.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
