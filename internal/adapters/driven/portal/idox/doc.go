// Package idox talks to the council's Idox "online-applications" planning
// portal, which has no API. It fetches application summary and details
// pages, heals stale keys through the reference search, and scrapes the
// advanced search and weekly list for recent decisions.
//
// All requests go through one Client, which applies a request rate limit,
// a circuit breaker and a cookie session.
package idox
