// Package robt implements the immutable, read-only on-disk B-tree disk
// index: a single bottom-up build pass over sorted entries, durable atomic
// publish, and a resident reader that descends M-blocks to a Z-block and
// resolves values (inline or value-log) on Get.
package robt
