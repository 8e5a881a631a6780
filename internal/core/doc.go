// Package core provides the generation pipeline behind the HTTP and CLI
// surfaces.
//
// This package holds all domain orchestration independent of transport. It
// can be used by web handlers, the synthgen CLI, or tests without
// modification.
//
// # Pipeline
//
// [Service.Generate] runs one request:
//
//  1. Validate the input extension, output type, row count and strategy
//  2. Acquire a slot from the [Limiter]
//  3. Read the upload into a table (package tabular)
//  4. [Expander.Expand]: normalize sentinels, fit a model, reconcile cells,
//     then extend with sampled rows or truncate
//  5. Renumber the id column 1..n and drop duplicate rows
//  6. Write <stem>_cleaned_synthetic.<ext> under the output root
//  7. Record a [Run] in the [HistoryStore]
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// [IsClientError] separates problems with the request from server failures
// and [IsBusy] detects limiter saturation.
package core
