package services

import "context"

type scopeKey struct{}

// scope is the delivery correlation attached to a context. It is copied on
// every annotation so a parent context never observes a child's values.
type scope struct {
	itemID    int64
	hasItem   bool
	stage     string
	lane      string
	requestID string
}

func scopeOf(ctx context.Context) scope {
	if ctx == nil {
		return scope{}
	}
	s, _ := ctx.Value(scopeKey{}).(scope)
	return s
}

func annotate(ctx context.Context, edit func(*scope)) context.Context {
	s := scopeOf(ctx)
	edit(&s)
	return context.WithValue(ctx, scopeKey{}, s)
}

// WithItemID tags ctx with the delivery it works on.
func WithItemID(ctx context.Context, id int64) context.Context {
	return annotate(ctx, func(s *scope) {
		s.itemID = id
		s.hasItem = true
	})
}

// ItemIDFromContext reports the delivery tagged on ctx.
func ItemIDFromContext(ctx context.Context) (int64, bool) {
	s := scopeOf(ctx)
	return s.itemID, s.hasItem
}

// WithStage tags ctx with a stage name. An empty name returns ctx unchanged.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return annotate(ctx, func(s *scope) { s.stage = stage })
}

func StageFromContext(ctx context.Context) (string, bool) {
	s := scopeOf(ctx)
	return s.stage, s.stage != ""
}

// WithLane tags ctx with the lane (media or chain) running the work.
func WithLane(ctx context.Context, lane string) context.Context {
	if lane == "" {
		return ctx
	}
	return annotate(ctx, func(s *scope) { s.lane = lane })
}

func LaneFromContext(ctx context.Context) (string, bool) {
	s := scopeOf(ctx)
	return s.lane, s.lane != ""
}

// WithRequestID tags ctx with the Clipto booking request being delivered.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return annotate(ctx, func(s *scope) { s.requestID = id })
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	s := scopeOf(ctx)
	return s.requestID, s.requestID != ""
}
