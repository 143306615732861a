package ctxutil

import "context"

type traceDataKey struct{}

// TraceData identifies one HTTP request in logs and spans.
type TraceData struct {
	TraceID   string
	RequestID string
	// SessionID is the interview addressed by the route, if any.
	SessionID string
}

// Fields returns the non-empty ids as logger key/value pairs.
func (td *TraceData) Fields() []interface{} {
	if td == nil {
		return nil
	}
	var kv []interface{}
	if td.TraceID != "" {
		kv = append(kv, "trace_id", td.TraceID)
	}
	if td.RequestID != "" {
		kv = append(kv, "request_id", td.RequestID)
	}
	if td.SessionID != "" {
		kv = append(kv, "session_id", td.SessionID)
	}
	return kv
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	td, _ := ctx.Value(traceDataKey{}).(*TraceData)
	return td
}
