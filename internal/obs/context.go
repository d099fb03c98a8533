package obs

import "context"

type routePatternKey struct{}

// WithRoutePattern records the matched chi pattern so outer middleware,
// which runs before routing completes, can label by route.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, routePatternKey{}, pattern)
}

// RoutePatternFromContext returns the recorded pattern or "".
func RoutePatternFromContext(ctx context.Context) string {
	v, _ := ctx.Value(routePatternKey{}).(string)
	return v
}
