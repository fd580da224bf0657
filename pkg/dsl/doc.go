/*
Package dsl provides a fluent builder for describing an entire tree of
intended transformations before any of them run.

The builder accumulates structure first; Run then spawns the roots, records
the promises and executes them in one scheduling pass (a two-phase
build-then-run protocol).
*/
package dsl
