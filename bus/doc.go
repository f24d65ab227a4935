// Package bus implements the Break Room: the in-memory pub/sub hub holding
// messages, threads, a rolling observation index and a small knowledge base.
// It is the single source of truth every agent observes. Posting is
// effectively single-writer: a post fully completes (thread resolution,
// index update, broadcast) before the next post of the same logical round is
// issued, so message ordering within a round is deterministic.
package bus
