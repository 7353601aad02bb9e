/*
Package storage provides uniform object I/O for snapshots over pluggable
backends: Local filesystem and S3-compatible object storage.

# Architecture

	┌─────────────────────────────────────────────┐
	│                 Backend                      │
	│  Put / Get / List / UploadTree / DownloadTree │
	└───────────────┬───────────────┬───────────────┘
	                │               │
	         ┌───────▼──────┐ ┌─────▼──────┐
	         │    Local      │ │     S3     │
	         │  base_dir/    │ │ aws-sdk-go │
	         │  temp+rename  │ │    -v2     │
	         └───────────────┘ └────────────┘

Backend does not interpret payloads: SnapshotManager decides what bytes
go where; storage only guarantees they arrive intact and atomically.

# Local

A "bucket" is a subdirectory of BaseDir; keys are relative paths beneath
it. Put writes through a temp file in the same directory followed by a
rename, so a concurrent Get never observes a partial object.

# S3

Uses the ambient AWS credential chain (environment, shared config,
instance/pod role) via config.LoadDefaultConfig, falling back to static
credentials when AccessKeyID/SecretAccessKey are explicitly configured.
List pages through ListObjectsV2 via the SDK's paginator.

# Errors

Both backends classify failures through pkg/errs: a missing key is
ErrNotFound, a Local call made with an already-done context is
ErrCanceled, anything else is ErrTransport or ErrConfig.
*/
package storage
