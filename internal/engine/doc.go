/*
Package engine implements the experiment graph core: an arena-style registry
of state nodes and pending promises, attachment of transition operators, and
the scheduler that resolves promises in dependency order.

The registry is exclusively owned by the Graph instance that created it.
Relations (parent, children) are identifier references, never embedded
ownership pointers.
*/
package engine
