/*
Package ports defines the interfaces between the Stemma core and its
external collaborators, following a hexagonal architecture.

The core treats state payloads as opaque; persistence is delegated to a
PayloadStore implementation chosen by the host application. Reference
adapters live under pkg/adapters (memory, file, redis).
*/
package ports
