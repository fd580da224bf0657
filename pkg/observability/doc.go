/*
Package observability bridges experiment lifecycle hooks to Prometheus
metrics. The collector produces a domain.LifecycleHooks value; install it
with stemma.WithLifecycleHooks and expose the registry via promhttp in the
host application.
*/
package observability
