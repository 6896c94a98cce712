package ctxutil

import "context"

type requestDataKey struct{}

// RequestData identifies the authenticated caller of a request. Callers
// are services, not end users: the subject of the service token.
type RequestData struct {
	Caller  string
	TokenID string
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	val := ctx.Value(requestDataKey{})
	if rd, ok := val.(*RequestData); ok {
		return rd
	}
	return nil
}
