package portfolio

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/2beens/portfoliocms/internal/apperr"
	"github.com/2beens/portfoliocms/internal/store"
	"github.com/2beens/portfoliocms/internal/telemetry/metrics"
	"github.com/2beens/portfoliocms/internal/telemetry/tracing"
)

var ErrUpdateNotObject = errors.New("update value must be a non-empty map")

// RefProvider hands out the portfolio subtree reference. Implemented by
// connector.Connector.
type RefProvider interface {
	PortfolioRef(ctx context.Context) (*store.Ref, error)
}

type Service struct {
	refs           RefProvider
	policies       *Policies
	metricsManager *metrics.Manager
}

func NewService(refs RefProvider, policies *Policies, metricsManager *metrics.Manager) *Service {
	if policies == nil {
		policies = &Policies{byCategory: DefaultPolicies()}
	}
	return &Service{
		refs:           refs,
		policies:       policies,
		metricsManager: metricsManager,
	}
}

// Tree returns the whole portfolio document; an empty store yields an empty map.
func (s *Service) Tree(ctx context.Context) (_ map[string]any, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.portfolio.tree")
	defer endSpan(span, &err)

	ref, err := s.refs.PortfolioRef(ctx)
	if err != nil {
		return nil, err
	}

	var tree map[string]any
	err = s.observe("get", func() error {
		var getErr error
		tree, getErr = ref.GetMap(ctx)
		return getErr
	})
	if err != nil {
		return nil, apperr.OperationFailed("get portfolio", err)
	}

	return tree, nil
}

// AddEntry writes entry into category according to the category's write
// policy. The generated id is returned for Append categories, empty otherwise.
func (s *Service) AddEntry(ctx context.Context, category string, entry any) (_ string, err error) {
	policy := s.policies.For(category)

	ctx, span := tracing.GlobalTracer.Start(ctx, "service.portfolio.add")
	span.SetAttributes(
		attribute.String("category", category),
		attribute.String("policy", policy.String()),
	)
	defer endSpan(span, &err)

	ref, err := s.refs.PortfolioRef(ctx)
	if err != nil {
		return "", err
	}
	categoryRef := ref.Child(category)

	if policy == Overwrite {
		if err := s.observe("set", func() error {
			return categoryRef.Set(ctx, entry)
		}); err != nil {
			return "", apperr.OperationFailed("set entry", err)
		}
		s.countWrite(category, "set")
		return "", nil
	}

	var newRef *store.Ref
	err = s.observe("push", func() error {
		var pushErr error
		newRef, pushErr = categoryRef.Push(ctx, entry)
		return pushErr
	})
	if err != nil {
		return "", apperr.OperationFailed("push entry", err)
	}
	s.countWrite(category, "push")

	return newRef.Key(), nil
}

// UpdateEntry merges fields into one item; fields not named stay untouched.
func (s *Service) UpdateEntry(ctx context.Context, category, itemID string, fields map[string]any) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.portfolio.update")
	span.SetAttributes(attribute.String("category", category), attribute.String("item_id", itemID))
	defer endSpan(span, &err)

	ref, err := s.refs.PortfolioRef(ctx)
	if err != nil {
		return err
	}

	if len(fields) == 0 {
		return apperr.OperationFailed("update entry", ErrUpdateNotObject)
	}

	if err := s.observe("update", func() error {
		return ref.Child(category).Child(itemID).Update(ctx, fields)
	}); err != nil {
		return apperr.OperationFailed("update entry", err)
	}
	s.countWrite(category, "update")

	return nil
}

func (s *Service) DeleteEntry(ctx context.Context, category, itemID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.portfolio.delete")
	span.SetAttributes(attribute.String("category", category), attribute.String("item_id", itemID))
	defer endSpan(span, &err)

	ref, err := s.refs.PortfolioRef(ctx)
	if err != nil {
		return err
	}

	if err := s.observe("delete", func() error {
		return ref.Child(category).Child(itemID).Delete(ctx)
	}); err != nil {
		return apperr.OperationFailed("delete entry", err)
	}
	s.countWrite(category, "delete")

	return nil
}

func (s *Service) observe(op string, f func() error) error {
	begin := time.Now()
	err := f()
	if s.metricsManager != nil {
		s.metricsManager.HistogramStoreOpDuration.With(prometheus.Labels{
			"op":      op,
			"success": strconv.FormatBool(err == nil),
		}).Observe(time.Since(begin).Seconds())
	}
	return err
}

func (s *Service) countWrite(category, op string) {
	if s.metricsManager != nil {
		s.metricsManager.CounterPortfolioWrites.With(prometheus.Labels{
			"category": category,
			"op":       op,
		}).Inc()
	}
}

func endSpan(span trace.Span, err *error) {
	if *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	}
	span.End()
}
