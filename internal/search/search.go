// Package search retrieves ranking candidates from the directory.
//
// Three strategies run in order, cheapest first, and the cascade stops as
// soon as enough unique candidates have accumulated:
//
//  1. prefix — walk the key index for records whose prefix key starts
//     with the (truncated) input key
//  2. fulltext — FTS5 boolean query over the normalized name, only when
//     the directory carries a full-text index
//  3. substring — LIKE scan for the normalized input anywhere in the
//     normalized name; last resort
//
// A failing strategy contributes zero rows and the cascade moves on; only
// connection-level store errors abort retrieval.
package search
