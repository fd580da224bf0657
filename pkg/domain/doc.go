/*
Package domain contains the core domain models of the Stemma lineage engine.

It defines the fundamental entities of an experiment tree: state nodes,
pending promises, transition operators (recipes and functions), lifecycle
events and run reports. This package is kept pure data plus small helpers;
the engine that owns and mutates a registry of these types lives in
internal/engine, and the read-only reconstruction used for post-hoc
analysis lives in pkg/analysis.
*/
package domain
