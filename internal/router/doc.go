// Package router keeps the topic subscriptions for inbound messages.
//
// A topic maps to an ordered list of handlers. Set replaces the list, Add
// appends to it and Remove drops the most recently added handler. Dispatch
// invokes every live handler of a topic in insertion order. Handlers removed
// while a dispatch is in progress are skipped by that dispatch.
package router
