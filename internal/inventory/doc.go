// Package inventory manages the product catalogue, stock levels, the
// append-only stock history, and low-stock thresholds.
//
// Stock adjustments are transactional: the level update and the history
// entry commit together or not at all, and quantities never go negative.
package inventory
