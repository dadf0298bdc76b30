/*
Package observability turns session lifecycle events into Prometheus metrics and structured logs.

Both are exposed as domain.LifecycleHooks and plugged into the session manager:

	metrics, err := observability.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	hooks := observability.Combine(metrics.Hooks(), observability.LogHooks(logger))
	mgr := session.NewManager(store, session.WithHooks(hooks))
*/
package observability
