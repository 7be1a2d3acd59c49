// Package billing provides the domain model for customer bills in a
// multi-tenant retail back office.
//
// A bill is an immutable record of a single customer transaction. It carries
// the goods sold as ordered line items, any adjustments applied on top of the
// item total, and a running settlement balance:
//
//   - Spent: sum of line item totals plus additive adjustments
//   - Paid: what the customer handed over on this visit
//   - CarryForward: outstanding debt carried in from earlier bills
//   - FinalResult: the balance after this transaction settles
//
// Adjustments are classified at creation time into payment, carry-forward,
// or other, so downstream reporting never has to re-parse display labels.
//
// Bills are never edited after creation; corrections are a soft delete
// followed by a new bill. Aggregation and debt reconciliation over bills
// live in the insight package.
package billing
