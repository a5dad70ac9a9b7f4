package params

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/tarrence/oascli/internal/openapi"
	"github.com/tarrence/oascli/internal/schema"
)

// DefaultContentTypes is the supported request body content types, in preference order.
var DefaultContentTypes = []string{"application/json"}

// Engine resolves operations of one document into flat parameter models. It holds no
// mutable state; every resolution builds its own resolver and diagnostics.
type Engine struct {
	doc          *openapi.Document
	logger       *slog.Logger
	reserved     map[string]bool
	contentTypes []string
	workers      int
}

type EngineOption func(*Engine)

func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithReservedWords adds identifiers that must be disambiguated.
func WithReservedWords(words ...string) EngineOption {
	return func(e *Engine) { e.reserved = ReservedSet(words...) }
}

func WithContentTypes(cts ...string) EngineOption {
	return func(e *Engine) {
		if len(cts) > 0 {
			e.contentTypes = cts
		}
	}
}

// WithWorkers bounds ResolveAll parallelism. Zero or less means GOMAXPROCS.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

func NewEngine(doc *openapi.Document, opts ...EngineOption) *Engine {
	e := &Engine{
		doc:          doc,
		logger:       slog.New(slog.DiscardHandler),
		reserved:     ReservedSet(),
		contentTypes: DefaultContentTypes,
		workers:      runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Document() *openapi.Document {
	return e.doc
}

// Resolution is the flat model of one operation.
type Resolution struct {
	Operation   *openapi.Operation
	Sets        map[Location]*ParameterSet
	Enums       *EnumTable
	Diagnostics []schema.Diagnostic
	// ContentType is the request body content type chosen, if any.
	ContentType string
}

// Set returns the set for loc, or an empty one when loc was not resolved.
func (r *Resolution) Set(loc Location) *ParameterSet {
	if s, ok := r.Sets[loc]; ok {
		return s
	}
	return &ParameterSet{Operation: r.Operation.ID, Location: loc}
}

// Ordered returns the resolved sets in path, query, header, body order.
func (r *Resolution) Ordered() []*ParameterSet {
	var out []*ParameterSet
	for _, loc := range AllLocations {
		if s, ok := r.Sets[loc]; ok {
			out = append(out, s)
		}
	}
	return out
}

// ResolveOperation flattens the requested locations (all of them when none are given).
func (e *Engine) ResolveOperation(opID string, locs ...Location) (*Resolution, error) {
	op, err := e.doc.Operation(opID)
	if err != nil {
		return nil, err
	}
	if len(locs) == 0 {
		locs = AllLocations
	}

	diags := &schema.Diagnostics{}
	resolver := schema.NewResolver(e.doc.Index(), schema.WithDiagnostics(diags), schema.WithLogger(e.logger))
	flattener := NewFlattener(resolver, e.reserved, e.logger)

	declared, err := e.doc.Parameters(op)
	if err != nil {
		return nil, err
	}

	res := &Resolution{Operation: op, Sets: map[Location]*ParameterSet{}}
	for _, loc := range locs {
		var set *ParameterSet
		if loc == LocationBody {
			set, err = e.resolveBody(op, flattener, diags, res)
		} else {
			set, err = flattener.FlattenParameters(opID, loc, declared)
		}
		if err != nil {
			return nil, err
		}
		res.Sets[loc] = set
	}
	res.Enums = EnumsFor(res.Ordered()...)
	res.Diagnostics = diags.All()
	e.logger.Debug("resolved operation", "operation", opID, "diagnostics", len(res.Diagnostics))
	return res, nil
}

func (e *Engine) resolveBody(op *openapi.Operation, f *Flattener, diags *schema.Diagnostics, res *Resolution) (*ParameterSet, error) {
	body, err := e.doc.RequestBody(op, e.contentTypes)
	if errors.Is(err, openapi.ErrUnsupportedContent) {
		diags.Add(schema.Diagnostic{
			Kind:      schema.UnrepresentablePropertyWarning,
			Operation: op.ID,
			Property:  string(LocationBody),
			Message:   err.Error(),
		})
		e.logger.Warn("skipping request body", "operation", op.ID, "reason", err)
		return &ParameterSet{Operation: op.ID, Location: LocationBody}, nil
	}
	if err != nil {
		return nil, err
	}
	if body == nil {
		return &ParameterSet{Operation: op.ID, Location: LocationBody}, nil
	}
	res.ContentType = body.ContentType
	node, err := schema.Decode(body.Schema)
	if err != nil {
		return nil, fmt.Errorf("%s body: %w", op.ID, err)
	}
	return f.Flatten(op.ID, LocationBody, node)
}

// OperationError is a fatal failure for one operation of a batch.
type OperationError struct {
	OperationID string
	Err         error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %v", e.OperationID, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// ResolveAll resolves ids in parallel. Results line up with ids (nil where the
// operation failed); one failure never stops the others.
func (e *Engine) ResolveAll(ctx context.Context, ids []string, locs ...Location) ([]*Resolution, []*OperationError) {
	results := make([]*Resolution, len(ids))
	errs := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			results[i], errs[i] = e.ResolveOperation(id, locs...)
			return nil
		})
	}
	_ = g.Wait()

	var failures []*OperationError
	for i, err := range errs {
		if err != nil {
			failures = append(failures, &OperationError{OperationID: ids[i], Err: err})
		}
	}
	return results, failures
}
