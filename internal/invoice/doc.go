// Package invoice manages supplier invoices and their line items.
//
// An invoice starts as a draft, accumulates lines, and is either
// finalised (locking it and posting received stock) or cancelled.
package invoice
