/*
Package analysis provides a read-only reconstruction of an executed (or
partially executed) experiment graph.

A Tree is built from a registry snapshot and offers traversal, filtering,
ancestor paths and subtree extraction. It never triggers execution and
reflects the graph at the moment of construction; rebuild it to observe
later mutations.
*/
package analysis
