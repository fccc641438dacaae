// Package rule defines the data model shared between the synthesis pipelines
// and the graph engine: build rules, their per-profile command sets, typed
// link requirements, and the pending-mutation hooks that implement deferred
// corrections.
//
// A Rule is inert data. Pipelines construct rules and hand them to the engine;
// the engine guarantees that a rule's PreBuild hook (and the PostBuild hooks of
// its dependencies) have completed before the rule's command text is consumed.
package rule
