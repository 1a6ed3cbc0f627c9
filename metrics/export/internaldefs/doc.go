// Package internaldefs exposes stable metric names and bucket bounds shared by
// exporter implementations.
//
// Counter and histogram definitions live here so that the Prometheus and OTel
// exporters publish identical metric names. Changes here affect all exporters
// simultaneously.
//
// # What this package must NOT do
//
//   - Import any exporter package.
//   - Perform I/O.
package internaldefs
