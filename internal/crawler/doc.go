// Package crawler implements the batched pagination crawl: fixed-width
// batches of concurrent page fetches, a barrier per batch, in-order record
// extraction, and the limit / end-of-catalogue termination rules.
package crawler
